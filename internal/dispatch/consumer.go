package dispatch

import (
	"context"
	"time"

	"github.com/rbright/saytap/internal/cmdqueue"
)

// DefaultTick is the consumer poll interval.
const DefaultTick = 100 * time.Millisecond

// Consumer drains the command queue on a fixed tick and dispatches every
// pending event in send order.
type Consumer struct {
	queue      *cmdqueue.Queue
	dispatcher *Dispatcher
	tick       time.Duration
}

func NewConsumer(queue *cmdqueue.Queue, dispatcher *Dispatcher, tick time.Duration) *Consumer {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Consumer{queue: queue, dispatcher: dispatcher, tick: tick}
}

// Run returns nil once the queue is closed and fully drained, or ctx.Err()
// on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if done := c.drainOnce(ctx); done {
			return nil
		}
	}
}

func (c *Consumer) drainOnce(ctx context.Context) bool {
	pending, closed := c.queue.Drain()
	for _, ev := range pending {
		if ctx.Err() != nil {
			return false
		}
		c.dispatcher.Dispatch(ctx, ev.Command)
	}
	return closed && c.queue.Len() == 0
}
