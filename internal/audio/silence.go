package audio

import (
	"context"
	"sync"
	"time"
)

// SilenceSource emits zeroed frames at real-time cadence. It backs the
// simulate mode, where a scripted recognizer supplies the words.
type SilenceSource struct {
	frames chan Frame
	stopCh chan struct{}
	once   sync.Once
}

// StartSilence emits one frame of frameSamples zeros per frame duration until
// ctx ends or Stop is called.
func StartSilence(ctx context.Context, frameSamples int) *SilenceSource {
	if frameSamples <= 0 {
		frameSamples = FrameSamples(0)
	}
	s := &SilenceSource{
		frames: make(chan Frame, 1),
		stopCh: make(chan struct{}),
	}
	go s.run(ctx, frameSamples, FrameDuration(frameSamples))
	return s
}

func (s *SilenceSource) Device() Device {
	return Device{ID: "simulate", Description: "simulated silence", Available: true}
}

func (s *SilenceSource) Frames() <-chan Frame { return s.frames }
func (s *SilenceSource) Err() error           { return nil }

func (s *SilenceSource) Stop() error {
	s.once.Do(func() { close(s.stopCh) })
	return nil
}

func (s *SilenceSource) run(ctx context.Context, frameSamples int, every time.Duration) {
	defer close(s.frames)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		select {
		case s.frames <- make(Frame, frameSamples):
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}
