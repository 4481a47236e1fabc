package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/saytap/internal/cmdqueue"
	"github.com/rbright/saytap/internal/command"
	"github.com/rbright/saytap/internal/fsm"
	"github.com/rbright/saytap/internal/ipc"
	"github.com/rbright/saytap/internal/metrics"
	"github.com/rbright/saytap/internal/region"
)

type fakeIndicator struct {
	listening atomic.Int32
	errors    atomic.Int32
	hides     atomic.Int32
}

func (f *fakeIndicator) ShowListening(context.Context)     { f.listening.Add(1) }
func (f *fakeIndicator) ShowError(context.Context, string) { f.errors.Add(1) }
func (f *fakeIndicator) Hide(context.Context)              { f.hides.Add(1) }

// fakeSource closes ended on Stop, the way a capture backend closes Frames.
type fakeSource struct {
	once  sync.Once
	ended chan struct{}
	stops atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{ended: make(chan struct{})}
}

func (s *fakeSource) Stop() error {
	s.stops.Add(1)
	s.end()
	return nil
}

// end simulates the backend running dry without a Stop call.
func (s *fakeSource) end() {
	s.once.Do(func() { close(s.ended) })
}

// loops wires a producer that runs until the source ends and a consumer
// that finishes once the producer has.
func fakeLoops(source *fakeSource, producerErr error) (Loops, *atomic.Bool) {
	consumed := &atomic.Bool{}
	producerDone := make(chan struct{})
	return Loops{
		Source: source,
		Producer: RunnerFunc(func(ctx context.Context) error {
			defer close(producerDone)
			select {
			case <-source.ended:
				return producerErr
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		Consumer: RunnerFunc(func(ctx context.Context) error {
			select {
			case <-producerDone:
				consumed.Store(true)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
	}, consumed
}

func waitForState(t *testing.T, ctrl *Controller, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool { return ctrl.State() == want }, 2*time.Second, 5*time.Millisecond)
}

func TestHandleStatusReportsRegionsAndCounters(t *testing.T) {
	counters := metrics.New()
	counters.AddFrames(12)
	reg := region.NewRegistry(region.Region{Name: "start", Width: 1, Height: 1})

	ctrl := NewController(nil, Loops{}, WithCounters(counters), WithRegistry(reg))

	status := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Equal(t, 1, status.Regions)
	require.Equal(t, int64(12), status.Counters["frames"])

	_, hasQueue := status.Counters["queue_pending"]
	require.False(t, hasQueue)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleStatusReportsQueueDepthAndOverflow(t *testing.T) {
	queue := cmdqueue.New(2, cmdqueue.DropOldest)
	queue.Send(cmdqueue.Event{Command: command.Power})
	queue.Send(cmdqueue.Event{Command: command.Start})
	queue.Send(cmdqueue.Event{Command: command.Stop})

	ctrl := NewController(nil, Loops{}, WithQueue(queue))

	status := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, int64(2), status.Counters["queue_pending"])
	require.Equal(t, int64(2), status.Counters["queue_capacity"])
	require.Equal(t, int64(1), status.Counters["queue_dropped"])
}

func TestRequestStopStateGuards(t *testing.T) {
	ctrl := NewController(nil, Loops{})

	fromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, fromIdle.OK)
	require.Contains(t, fromIdle.Error, "cannot stop from state idle")

	ctrl.mu.Lock()
	ctrl.state = fsm.StateListening
	ctrl.mu.Unlock()

	first := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, first.OK)
	require.Equal(t, "stop requested", first.Message)

	second := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, second.OK)
	require.Equal(t, "stop already requested", second.Message)

	ctrl.mu.Lock()
	ctrl.state = fsm.StateStopping
	ctrl.mu.Unlock()

	stopping := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, stopping.OK)
	require.Equal(t, "already stopping", stopping.Message)
}

func TestRunRequiresProducerAndConsumer(t *testing.T) {
	result := NewController(nil, Loops{}).Run(context.Background())
	require.Error(t, result.Err)
	require.Equal(t, fsm.StateIdle, result.State)
}

func TestRunStopRequestDrainsLoops(t *testing.T) {
	source := newFakeSource()
	loops, consumed := fakeLoops(source, nil)
	ind := &fakeIndicator{}
	ctrl := NewController(nil, loops, WithIndicator(ind), WithCounters(metrics.New()))

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "stop"}).OK)

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, ReasonRequested, result.Reason)
	require.Equal(t, fsm.StateIdle, result.State)
	require.True(t, consumed.Load())
	require.Equal(t, int32(1), source.stops.Load())
	require.Equal(t, int32(1), ind.listening.Load())
	require.Equal(t, int32(1), ind.hides.Load())
	require.NotNil(t, result.Counters)
	require.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestRunContextCancelStopsGracefully(t *testing.T) {
	source := newFakeSource()
	loops, consumed := fakeLoops(source, nil)
	ctrl := NewController(nil, loops)

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(ctx) }()

	waitForState(t, ctrl, fsm.StateListening)
	cancel()

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, ReasonSignal, result.Reason)
	require.Equal(t, fsm.StateIdle, result.State)
	require.True(t, consumed.Load())
}

func TestRunSourceEndingFinishesSession(t *testing.T) {
	source := newFakeSource()
	loops, _ := fakeLoops(source, nil)
	ctrl := NewController(nil, loops)

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateListening)
	source.end()

	result := <-resultCh
	require.NoError(t, result.Err)
	require.Equal(t, ReasonSourceEnded, result.Reason)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Equal(t, int32(1), source.stops.Load())
}

func TestRunProducerFailureMarksError(t *testing.T) {
	source := newFakeSource()
	loops, _ := fakeLoops(source, errors.New("audio source: device unplugged"))
	ind := &fakeIndicator{}
	ctrl := NewController(nil, loops, WithIndicator(ind))

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateListening)
	source.end()

	result := <-resultCh
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "device unplugged")
	require.Equal(t, ReasonFailed, result.Reason)
	require.Equal(t, fsm.StateError, result.State)
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Equal(t, int32(1), ind.errors.Load())
	require.Equal(t, int32(1), source.stops.Load())
}

func TestRunDrainTimeoutCancelsLoops(t *testing.T) {
	stuck := RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctrl := NewController(nil, Loops{
		Source:   newFakeSource(),
		Producer: stuck,
		Consumer: stuck,
	}, WithDrainTimeout(20*time.Millisecond))

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "stop"}).OK)

	result := <-resultCh
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "drain timed out")
}

func TestRunCancelsBackgroundTasks(t *testing.T) {
	source := newFakeSource()
	loops, _ := fakeLoops(source, nil)
	taskStopped := &atomic.Bool{}
	loops.Tasks = []Runner{
		RunnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			taskStopped.Store(true)
			return nil
		}),
		RunnerFunc(func(context.Context) error {
			return errors.New("watcher unavailable")
		}),
	}
	ctrl := NewController(nil, loops)

	resultCh := make(chan Result, 1)
	go func() { resultCh <- ctrl.Run(context.Background()) }()

	waitForState(t, ctrl, fsm.StateListening)
	require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "stop"}).OK)

	result := <-resultCh
	require.NoError(t, result.Err)
	require.True(t, taskStopped.Load())
}
