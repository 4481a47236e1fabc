package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
)

// streamWatchInterval is how often a running record stream is checked for
// server-side failure. The pulse client exposes no close notification.
const streamWatchInterval = 250 * time.Millisecond

// recordStream is the slice of *pulse.RecordStream the failure watcher reads.
type recordStream interface {
	Closed() bool
	Error() error
}

// PulseSource streams fixed-size float32 frames from one selected Pulse source.
type PulseSource struct {
	device       Device
	frameSamples int

	client *pulse.Client
	stream *pulse.RecordStream

	frames chan Frame
	stopCh chan struct{}

	mu      sync.Mutex
	pending []float32
	stopped bool
	err     error

	inflight sync.WaitGroup
	samples  atomic.Int64
}

// StartPulse creates and starts a mono float32 record stream at SampleRate.
func StartPulse(ctx context.Context, selected Device, frameSamples int) (*PulseSource, error) {
	client, err := newClient()
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := newPulseSource(selected, frameSamples)
	capture.client = client

	stream, err := client.NewRecord(
		pulse.Float32Writer(capture.onSamples),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(uint32(frameSamples*4)),
		pulse.RecordMediaName("saytap voice commands"),
	)
	if err != nil {
		_ = capture.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()
	go capture.watch(stream, streamWatchInterval)

	return capture, nil
}

func newPulseSource(device Device, frameSamples int) *PulseSource {
	if frameSamples <= 0 {
		frameSamples = FrameSamples(0)
	}
	return &PulseSource{
		device:       device,
		frameSamples: frameSamples,
		frames:       make(chan Frame, 128),
		stopCh:       make(chan struct{}),
	}
}

// Device returns capture metadata for logging and diagnostics.
func (c *PulseSource) Device() Device {
	return c.device
}

// Frames returns the sample stream as fixed-size frames.
func (c *PulseSource) Frames() <-chan Frame {
	return c.frames
}

// Err reports why the stream ended when the server dropped it.
func (c *PulseSource) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SamplesCaptured reports total samples accepted from Pulse.
func (c *PulseSource) SamplesCaptured() int64 {
	return c.samples.Load()
}

// Stop halts the stream, flushes the residual partial frame, and closes Frames exactly once.
func (c *PulseSource) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil && !c.stream.Closed() {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		select {
		case c.frames <- Frame(pending):
		default:
		}
	}

	close(c.frames)
	return nil
}

// watch stops the source once the server closes the stream or its writer fails.
func (c *PulseSource) watch(stream recordStream, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
		}

		if stream.Closed() {
			err := stream.Error()
			if err == nil {
				err = pulse.ErrConnectionClosed
			}
			c.fail(fmt.Errorf("pulse record stream closed: %w", err))
			return
		}
		if err := stream.Error(); err != nil {
			c.fail(fmt.Errorf("pulse record stream: %w", err))
			return
		}
	}
}

// fail records err as the terminal error and tears the source down. It is a
// no-op once Stop has run.
func (c *PulseSource) fail(err error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.mu.Unlock()
	_ = c.Stop()
}

// onSamples receives Pulse float32 buffers and emits frameSamples-long frames.
func (c *PulseSource) onSamples(buffer []float32) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add shares the mutex with c.stopped so Stop's Wait never races it.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)

	ready := make([]Frame, 0, len(c.pending)/c.frameSamples)
	for len(c.pending) >= c.frameSamples {
		frame := make(Frame, c.frameSamples)
		copy(frame, c.pending[:c.frameSamples])
		c.pending = c.pending[c.frameSamples:]
		ready = append(ready, frame)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.samples.Add(int64(len(buffer)))

	for _, frame := range ready {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.frames <- frame:
		}
	}

	return len(buffer), nil
}
