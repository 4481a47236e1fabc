// Package dispatch turns classified commands into clicks on named regions.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbright/saytap/internal/command"
	"github.com/rbright/saytap/internal/errs"
	"github.com/rbright/saytap/internal/events"
	"github.com/rbright/saytap/internal/logging"
	"github.com/rbright/saytap/internal/region"
)

// DefaultSettleDelay is the pause between pointer move and click.
const DefaultSettleDelay = 100 * time.Millisecond

// Injector performs synthetic pointer actions.
type Injector interface {
	MoveTo(ctx context.Context, x, y int) error
	Click(ctx context.Context) error
}

// Result classifies what Dispatch did.
type Result int

const (
	Clicked Result = iota
	RegionMissing
	InjectionFailed
	Canceled
)

func (r Result) String() string {
	switch r {
	case Clicked:
		return "clicked"
	case RegionMissing:
		return "region_missing"
	case InjectionFailed:
		return "injection_failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome describes one dispatch. Err is informational; callers never need
// to act on it.
type Outcome struct {
	Command command.Command
	Result  Result
	X, Y    int
	Err     error
}

// Dispatcher resolves a command to its region and clicks the region center.
type Dispatcher struct {
	registry *region.Registry
	injector Injector
	settle   time.Duration
	logger   *slog.Logger
	bus      *events.Bus
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithSettleDelay(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d >= 0 {
			dp.settle = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(dp *Dispatcher) { dp.logger = logger }
}

func WithBus(bus *events.Bus) Option {
	return func(dp *Dispatcher) { dp.bus = bus }
}

// New builds a Dispatcher over registry and injector.
func New(registry *region.Registry, injector Injector, opts ...Option) *Dispatcher {
	dp := &Dispatcher{
		registry: registry,
		injector: injector,
		settle:   DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(dp)
	}
	dp.logger = logging.OrDiscard(dp.logger)
	return dp
}

// Dispatch moves to the center of the region named by cmd, waits the settle
// delay, then left-clicks once. A missing region or an injection failure is
// logged and published, never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) Outcome {
	name := cmd.String()
	out := Outcome{Command: cmd}

	target, ok := d.registry.Lookup(name)
	if !ok {
		out.Result = RegionMissing
		out.Err = errs.New(errs.KindRegionNotFound, "dispatch", "no region named "+name)
		d.logger.Warn("region not found", "region", name)
		d.bus.Publish(events.Event{Topic: events.RegionMissing, Command: name, Region: name, Err: out.Err})
		return out
	}

	out.X, out.Y = target.Center()

	if err := d.injector.MoveTo(ctx, out.X, out.Y); err != nil {
		return d.injectionFailed(out, "move", err)
	}

	if d.settle > 0 {
		timer := time.NewTimer(d.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			out.Result = Canceled
			out.Err = ctx.Err()
			return out
		case <-timer.C:
		}
	}

	if err := d.injector.Click(ctx); err != nil {
		return d.injectionFailed(out, "click", err)
	}

	out.Result = Clicked
	d.logger.Info("region clicked", "region", name, "x", out.X, "y", out.Y)
	d.bus.Publish(events.Event{Topic: events.Dispatched, Command: name, Region: name, X: out.X, Y: out.Y})
	return out
}

func (d *Dispatcher) injectionFailed(out Outcome, step string, err error) Outcome {
	name := out.Command.String()
	out.Result = InjectionFailed
	out.Err = errs.Wrap(errs.KindInjection, "dispatch."+step, "inject pointer "+step, err)
	d.logger.Error("input injection failed",
		"region", name,
		"step", step,
		"x", out.X,
		"y", out.Y,
		"error", out.Err.Error(),
	)
	d.bus.Publish(events.Event{
		Topic:   events.InjectionFailed,
		Command: name,
		Region:  name,
		X:       out.X,
		Y:       out.Y,
		Err:     out.Err,
	})
	return out
}
