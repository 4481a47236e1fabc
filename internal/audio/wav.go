package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// WAVSource replays a PCM WAV file as capture frames.
type WAVSource struct {
	device Device
	frames chan Frame
	stopCh chan struct{}
	once   sync.Once
}

// WAVOptions tunes file replay.
type WAVOptions struct {
	FrameSamples int
	// Realtime paces frames at their wall-clock duration.
	Realtime bool
}

// OpenWAV decodes path and replays it as frames. The file must be PCM at
// SampleRate; multi-channel input is averaged down to mono.
func OpenWAV(ctx context.Context, fs afero.Fs, path string, opts WAVOptions) (*WAVSource, error) {
	samples, err := decodeWAV(fs, path)
	if err != nil {
		return nil, err
	}

	frameSamples := opts.FrameSamples
	if frameSamples <= 0 {
		frameSamples = FrameSamples(0)
	}

	s := &WAVSource{
		device: Device{ID: "wav:" + path, Description: path, Available: true},
		frames: make(chan Frame, 16),
		stopCh: make(chan struct{}),
	}
	go s.replay(ctx, samples, frameSamples, opts.Realtime)
	return s, nil
}

func (s *WAVSource) Device() Device      { return s.device }
func (s *WAVSource) Frames() <-chan Frame { return s.frames }
func (s *WAVSource) Err() error           { return nil }

func (s *WAVSource) Stop() error {
	s.once.Do(func() { close(s.stopCh) })
	return nil
}

func (s *WAVSource) replay(ctx context.Context, samples []float32, frameSamples int, realtime bool) {
	defer close(s.frames)

	var tick <-chan time.Time
	if realtime {
		ticker := time.NewTicker(FrameDuration(frameSamples))
		defer ticker.Stop()
		tick = ticker.C
	}

	for start := 0; start < len(samples); start += frameSamples {
		end := min(start+frameSamples, len(samples))
		frame := make(Frame, end-start)
		copy(frame, samples[start:end])

		if tick != nil {
			select {
			case <-tick:
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}

		select {
		case s.frames <- frame:
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func decodeWAV(fs afero.Fs, path string) ([]float32, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wav %q: not a valid PCM wav file", path)
	}
	if int(dec.SampleRate) != SampleRate {
		return nil, fmt.Errorf("wav %q: sample rate %d, want %d", path, dec.SampleRate, SampleRate)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav %q: %w", path, err)
	}
	return downmix(buf, int(dec.NumChans), int(dec.BitDepth)), nil
}

// downmix averages interleaved channels and scales integer PCM to [-1, 1].
func downmix(buf *goaudio.IntBuffer, channels int, bitDepth int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	out := make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(buf.Data[i+ch])
		}
		out = append(out, sum/float32(channels)/scale)
	}
	return out
}

// WAVWriter streams 16-bit mono PCM at SampleRate into a WAV container.
type WAVWriter struct {
	enc *wav.Encoder
	buf *goaudio.IntBuffer
}

// NewWAVWriter starts a WAV stream on w. Close finalizes the header.
func NewWAVWriter(w io.WriteSeeker) *WAVWriter {
	return &WAVWriter{
		enc: wav.NewEncoder(w, SampleRate, 16, 1, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: SampleRate},
			SourceBitDepth: 16,
		},
	}
}

// WriteSamples appends PCM16 samples.
func (w *WAVWriter) WriteSamples(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	data := w.buf.Data[:0]
	for _, s := range samples {
		data = append(data, int(s))
	}
	w.buf.Data = data
	return w.enc.Write(w.buf)
}

func (w *WAVWriter) Close() error {
	if w.enc == nil {
		return errors.New("wav writer already closed")
	}
	err := w.enc.Close()
	w.enc = nil
	return err
}
