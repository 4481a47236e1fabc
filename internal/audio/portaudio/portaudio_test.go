//go:build integration

package portaudio

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/saytap/internal/audio"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	buffer []float32

	mu      sync.Mutex
	reads   int
	failAt  int
	readErr error

	stops  atomic.Int32
	closes atomic.Int32
}

func (f *fakeStream) Read() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failAt > 0 && f.reads >= f.failAt {
		return f.readErr
	}
	for i := range f.buffer {
		f.buffer[i] = float32(f.reads) / 10
	}
	time.Sleep(time.Millisecond)
	return nil
}

func (f *fakeStream) Stop() error {
	f.stops.Add(1)
	return nil
}

func (f *fakeStream) Close() error {
	f.closes.Add(1)
	return nil
}

func TestSourceReadErrorClosesFramesAndReleasesStream(t *testing.T) {
	buffer := make([]float32, 4)
	st := &fakeStream{buffer: buffer, failAt: 3, readErr: errors.New("input overflowed")}
	var terminated atomic.Int32
	s := newSource(audio.Device{ID: "portaudio:default"}, st, buffer, func() error {
		terminated.Add(1)
		return nil
	})

	go s.readLoop()

	var frames []audio.Frame
	for frame := range s.Frames() {
		frames = append(frames, frame)
	}
	require.Len(t, frames, 2)
	require.Equal(t, audio.Frame{0.1, 0.1, 0.1, 0.1}, frames[0])
	require.ErrorContains(t, s.Err(), "read portaudio stream: input overflowed")

	require.Eventually(t, func() bool { return terminated.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), st.stops.Load())
	require.Equal(t, int32(1), st.closes.Load())

	require.NoError(t, s.Stop())
	require.Equal(t, int32(1), terminated.Load())
}

func TestSourceStopIsIdempotentAndLeavesErrNil(t *testing.T) {
	buffer := make([]float32, 4)
	st := &fakeStream{buffer: buffer}
	var terminated atomic.Int32
	s := newSource(audio.Device{ID: "portaudio:default"}, st, buffer, func() error {
		terminated.Add(1)
		return nil
	})

	go s.readLoop()
	<-s.Frames()

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Err())
	require.Equal(t, int32(1), terminated.Load())
	require.Equal(t, int32(1), st.closes.Load())

	for range s.Frames() {
	}
}
