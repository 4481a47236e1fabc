// Package portaudio captures frames from the PortAudio default input device.
// It is split from package audio so only the run path links the native library.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rbright/saytap/internal/audio"
)

// stream is the part of *portaudio.Stream the read loop drives.
type stream interface {
	Read() error
	Stop() error
	Close() error
}

// Source reads fixed-size frames from a blocking-read PortAudio stream.
type Source struct {
	device    audio.Device
	stream    stream
	buffer    []float32
	terminate func() error

	frames chan audio.Frame
	stopCh chan struct{}
	done   chan struct{}

	once    sync.Once
	stopErr error
	mu      sync.Mutex
	err     error
}

// Start initializes PortAudio and starts a mono input stream at audio.SampleRate.
func Start(ctx context.Context, frameSamples int) (*Source, error) {
	if frameSamples <= 0 {
		frameSamples = audio.FrameSamples(0)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	device := audio.Device{ID: "portaudio:default", Description: "PortAudio default input", Available: true, Default: true}
	if info, err := portaudio.DefaultInputDevice(); err == nil && info != nil {
		device.Description = info.Name
	}

	buffer := make([]float32, frameSamples)
	paStream, err := portaudio.OpenDefaultStream(1, 0, float64(audio.SampleRate), frameSamples, buffer)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open portaudio stream: %w", err)
	}
	if err := paStream.Start(); err != nil {
		_ = paStream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start portaudio stream: %w", err)
	}

	s := newSource(device, paStream, buffer, portaudio.Terminate)
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop()
		case <-s.done:
		}
	}()
	return s, nil
}

func newSource(device audio.Device, st stream, buffer []float32, terminate func() error) *Source {
	return &Source{
		device:    device,
		stream:    st,
		buffer:    buffer,
		terminate: terminate,
		frames:    make(chan audio.Frame, 128),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Source) Device() audio.Device       { return s.device }
func (s *Source) Frames() <-chan audio.Frame { return s.frames }

func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop ends the read loop, then closes the stream and terminates PortAudio.
// Concurrent and repeated calls wait for the first teardown and share its result.
func (s *Source) Stop() error {
	s.once.Do(func() {
		close(s.stopCh)
		<-s.done
		if err := s.stream.Stop(); err != nil {
			s.stopErr = fmt.Errorf("stop portaudio stream: %w", err)
		}
		_ = s.stream.Close()
		if s.terminate != nil {
			_ = s.terminate()
		}
	})
	return s.stopErr
}

// readLoop publishes frames until Stop or a read failure. A failed read
// records the error, closes Frames, and releases the stream itself.
func (s *Source) readLoop() {
	err := s.read()
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
	close(s.frames)
	close(s.done)
	if err != nil {
		_ = s.Stop()
	}
}

func (s *Source) read() error {
	for {
		select {
		case <-s.stopCh:
			return nil
		default:
		}

		if err := s.stream.Read(); err != nil {
			select {
			case <-s.stopCh:
				return nil
			default:
				return fmt.Errorf("read portaudio stream: %w", err)
			}
		}

		frame := make(audio.Frame, len(s.buffer))
		copy(frame, s.buffer)
		select {
		case s.frames <- frame:
		case <-s.stopCh:
			return nil
		}
	}
}
