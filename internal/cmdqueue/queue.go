// Package cmdqueue carries classified commands from the capture loop to the
// dispatcher. Send never blocks; the consumer drains everything pending.
package cmdqueue

import (
	"fmt"
	"sync"
	"time"

	"github.com/rbright/saytap/internal/command"
)

// Event is one classified command travelling through the queue.
type Event struct {
	Seq     uint64
	Command command.Command
	Text    string
	At      time.Time
}

// OverflowPolicy decides which event is lost when a bounded queue is full.
type OverflowPolicy string

const (
	DropOldest OverflowPolicy = "drop-oldest"
	DropNewest OverflowPolicy = "drop-newest"
)

// ParseOverflowPolicy maps a config value to a policy.
func ParseOverflowPolicy(raw string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(raw); p {
	case DropOldest, DropNewest:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q", raw)
	}
}

// SendResult reports what happened to a Send.
type SendResult struct {
	Seq      uint64
	Accepted bool
	// Dropped is the event evicted to make room, or the rejected event itself
	// under DropNewest.
	Dropped *Event
	Closed  bool
}

// Queue is a single-producer single-consumer FIFO.
type Queue struct {
	capacity int
	policy   OverflowPolicy

	mu      sync.Mutex
	pending []Event
	seq     uint64
	closed  bool
	dropped uint64
}

// New builds a queue. capacity 0 means unbounded.
func New(capacity int, policy OverflowPolicy) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	if policy == "" {
		policy = DropOldest
	}
	return &Queue{capacity: capacity, policy: policy}
}

// Send enqueues an event and assigns its sequence number. It never blocks.
func (q *Queue) Send(ev Event) SendResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return SendResult{Closed: true}
	}

	q.seq++
	ev.Seq = q.seq
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	if q.capacity > 0 && len(q.pending) >= q.capacity {
		q.dropped++
		if q.policy == DropNewest {
			return SendResult{Seq: ev.Seq, Dropped: &ev}
		}
		evicted := q.pending[0]
		q.pending = append(q.pending[1:], ev)
		return SendResult{Seq: ev.Seq, Accepted: true, Dropped: &evicted}
	}

	q.pending = append(q.pending, ev)
	return SendResult{Seq: ev.Seq, Accepted: true}
}

// TryReceive pops the oldest pending event without blocking.
func (q *Queue) TryReceive() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Event{}, false
	}
	ev := q.pending[0]
	q.pending = q.pending[1:]
	return ev, true
}

// Drain takes every pending event in send order. closed is true once Close
// has been called, so an empty drain with closed set means the stream ended.
func (q *Queue) Drain() (events []Event, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	events = q.pending
	q.pending = nil
	return events, q.closed
}

// Close marks the end of the stream. Pending events stay drainable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped reports how many events overflow has discarded.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue) Capacity() int { return q.capacity }
