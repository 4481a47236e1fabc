// Package metrics counts pipeline and dispatch outcomes.
package metrics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rbright/saytap/internal/events"
)

// Counters tallies one counter per event topic plus frames processed.
type Counters struct {
	frames atomic.Int64

	mu     sync.RWMutex
	topics map[events.Topic]*atomic.Int64
}

func New() *Counters {
	c := &Counters{topics: make(map[events.Topic]*atomic.Int64)}
	for _, topic := range events.Topics() {
		c.topics[topic] = new(atomic.Int64)
	}
	return c
}

// Attach subscribes the counters to every topic on bus.
func (c *Counters) Attach(bus *events.Bus) error {
	for _, topic := range events.Topics() {
		if err := bus.Subscribe(topic, c.observe); err != nil {
			return err
		}
	}
	return nil
}

func (c *Counters) observe(ev events.Event) {
	c.Inc(ev.Topic)
}

// Inc bumps the counter for topic.
func (c *Counters) Inc(topic events.Topic) {
	c.mu.RLock()
	counter, ok := c.topics[topic]
	c.mu.RUnlock()
	if ok {
		counter.Add(1)
		return
	}

	c.mu.Lock()
	if counter, ok = c.topics[topic]; !ok {
		counter = new(atomic.Int64)
		c.topics[topic] = counter
	}
	c.mu.Unlock()
	counter.Add(1)
}

// AddFrames records processed capture frames.
func (c *Counters) AddFrames(n int64) {
	c.frames.Add(n)
}

// Snapshot copies every counter, keyed by topic name plus "frames".
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.topics)+1)
	for topic, counter := range c.topics {
		out[string(topic)] = counter.Load()
	}
	out["frames"] = c.frames.Load()
	return out
}

// Log emits every counter as one record.
func (c *Counters) Log(ctx context.Context, logger *slog.Logger, msg string) {
	if logger == nil {
		return
	}
	snapshot := c.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, slog.Int64(key, snapshot[key]))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}
