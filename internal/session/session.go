// Package session supervises the capture and dispatch loops for one run.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/saytap/internal/cmdqueue"
	"github.com/rbright/saytap/internal/fsm"
	"github.com/rbright/saytap/internal/ipc"
	"github.com/rbright/saytap/internal/logging"
	"github.com/rbright/saytap/internal/metrics"
	"github.com/rbright/saytap/internal/region"
)

// DefaultDrainTimeout bounds how long Stop waits for the loops to finish
// pending work before cancelling them.
const DefaultDrainTimeout = 3 * time.Second

// Stop reasons reported in Result.
const (
	ReasonSourceEnded = "source_ended"
	ReasonSignal      = "signal"
	ReasonRequested   = "requested"
	ReasonFailed      = "failed"
)

// Runner is a long-lived task.
type Runner interface {
	Run(context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Stopper ends the audio stream so the producer can flush and exit.
type Stopper interface {
	Stop() error
}

// Loops is the task set one run owns. Producer and Consumer must both
// finish before Run returns; Tasks are cancelled once they have.
type Loops struct {
	Source   Stopper
	Producer Runner
	Consumer Runner
	Tasks    []Runner
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowListening(context.Context)
	ShowError(context.Context, string)
	Hide(context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)     {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) Hide(context.Context)              {}

// Result is the lifecycle output of one Run.
type Result struct {
	State      fsm.State
	Reason     string
	Err        error
	Counters   map[string]int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Controller owns the service state machine and its loops.
type Controller struct {
	logger    *slog.Logger
	loops     Loops
	indicator Indicator
	counters  *metrics.Counters
	registry  *region.Registry
	queue     *cmdqueue.Queue
	drain     time.Duration

	mu    sync.RWMutex
	state fsm.State

	stopCh chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

func WithIndicator(indicator Indicator) Option {
	return func(c *Controller) {
		if indicator != nil {
			c.indicator = indicator
		}
	}
}

func WithCounters(counters *metrics.Counters) Option {
	return func(c *Controller) { c.counters = counters }
}

func WithRegistry(registry *region.Registry) Option {
	return func(c *Controller) { c.registry = registry }
}

// WithQueue adds the command queue's depth, capacity and overflow tally to status.
func WithQueue(queue *cmdqueue.Queue) Option {
	return func(c *Controller) { c.queue = queue }
}

func WithDrainTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.drain = d
		}
	}
}

// NewController builds a controller in the idle state.
func NewController(logger *slog.Logger, loops Loops, opts ...Option) *Controller {
	c := &Controller{
		logger:    logging.OrDiscard(logger),
		loops:     loops,
		indicator: noopIndicator{},
		drain:     DefaultDrainTimeout,
		state:     fsm.StateIdle,
		stopCh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run starts the loops and blocks until the source ends, a stop is
// requested, ctx is cancelled, or a loop fails. Producer and consumer are
// always joined before Run returns.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}

	if c.loops.Producer == nil || c.loops.Consumer == nil {
		result.State = c.State()
		result.Err = errors.New("session needs a producer and a consumer")
		result.FinishedAt = time.Now()
		return result
	}
	if err := c.transition(fsm.EventStart); err != nil {
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	c.indicator.ShowListening(ctx)
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	loopCtx, cancelLoops := context.WithCancel(context.Background())
	defer cancelLoops()

	taskCtx, cancelTasks := context.WithCancel(loopCtx)
	tasks, taskCtx := errgroup.WithContext(taskCtx)
	for _, task := range c.loops.Tasks {
		task := task
		tasks.Go(func() error {
			if err := task.Run(taskCtx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Warn("background task stopped", "error", err.Error())
			}
			return nil
		})
	}

	group, groupCtx := errgroup.WithContext(loopCtx)
	group.Go(func() error { return c.loops.Producer.Run(groupCtx) })
	group.Go(func() error { return c.loops.Consumer.Run(groupCtx) })

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	var err error
	select {
	case err = <-done:
		result.Reason = ReasonSourceEnded
		c.releaseSource()
	case <-ctx.Done():
		result.Reason = ReasonSignal
		err = c.shutdown(done, cancelLoops)
	case <-c.stopCh:
		result.Reason = ReasonRequested
		err = c.shutdown(done, cancelLoops)
	}

	cancelTasks()
	_ = tasks.Wait()

	if c.counters != nil {
		result.Counters = c.counters.Snapshot()
	}

	if err != nil {
		result.Reason = ReasonFailed
		c.logger.Error("session failed", "error", err.Error())
		c.indicator.ShowError(context.Background(), "Voice commands stopped")
		_ = c.transition(fsm.EventFail)
		result.State = c.State()
		result.Err = err
		_ = c.transition(fsm.EventReset)
		result.FinishedAt = time.Now()
		return result
	}

	_ = c.transition(fsm.EventDrained)
	result.State = c.State()
	result.FinishedAt = time.Now()
	c.logger.Info("session finished", "reason", result.Reason)
	return result
}

// shutdown stops the source and waits for the loops to drain. After the
// drain timeout the loops are cancelled outright.
func (c *Controller) shutdown(done <-chan error, cancelLoops context.CancelFunc) error {
	_ = c.transition(fsm.EventStop)
	if c.loops.Source != nil {
		c.releaseSource()
	} else {
		cancelLoops()
	}

	timer := time.NewTimer(c.drain)
	defer timer.Stop()

	select {
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-timer.C:
		c.logger.Warn("session drain timed out; cancelling loops", "timeout", c.drain.String())
		cancelLoops()
		<-done
		return fmt.Errorf("shutdown drain timed out after %s", c.drain)
	}
}

// releaseSource stops the capture backend. Backends treat repeated Stop
// calls as no-ops, so this also runs after the source ended on its own.
func (c *Controller) releaseSource() {
	if c.loops.Source == nil {
		return
	}
	if err := c.loops.Source.Stop(); err != nil {
		c.logger.Warn("audio source stop failed", "error", err.Error())
	}
}

// Handle serves IPC commands for the running service.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		resp := ipc.Response{OK: true, State: string(c.State()), Message: "status"}
		if c.registry != nil {
			resp.Regions = c.registry.Len()
		}
		if c.counters != nil {
			resp.Counters = c.counters.Snapshot()
		}
		if c.queue != nil {
			if resp.Counters == nil {
				resp.Counters = make(map[string]int64, 3)
			}
			resp.Counters["queue_pending"] = int64(c.queue.Len())
			resp.Counters["queue_capacity"] = int64(c.queue.Capacity())
			resp.Counters["queue_dropped"] = int64(c.queue.Dropped())
		}
		return resp
	case "stop":
		return c.requestStop()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) requestStop() ipc.Response {
	state := c.State()
	if state == fsm.StateStopping {
		return ipc.Response{OK: true, State: string(state), Message: "already stopping"}
	}
	if state != fsm.StateListening {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot stop from state %s", state)}
	}

	select {
	case c.stopCh <- struct{}{}:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}
