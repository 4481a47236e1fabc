// Package events fans pipeline and dispatch outcomes out to observers.
package events

import (
	"time"

	evbus "github.com/asaskevich/EventBus"
)

// Topic names one kind of event.
type Topic string

const (
	Partial           Topic = "speech:partial"
	Final             Topic = "speech:final"
	RecognitionFailed Topic = "speech:failed"
	Unmatched         Topic = "command:unmatched"
	Queued            Topic = "command:queued"
	Dropped           Topic = "command:dropped"
	Dispatched        Topic = "dispatch:clicked"
	RegionMissing     Topic = "dispatch:region_missing"
	InjectionFailed   Topic = "dispatch:injection_failed"
	RegionsReloaded   Topic = "regions:reloaded"
)

// Topics lists every topic the runtime publishes.
func Topics() []Topic {
	return []Topic{
		Partial, Final, RecognitionFailed, Unmatched, Queued, Dropped,
		Dispatched, RegionMissing, InjectionFailed, RegionsReloaded,
	}
}

// Event is the single payload type carried on every topic. Fields that do
// not apply to a topic stay zero.
type Event struct {
	Topic   Topic
	Text    string
	Command string
	Region  string
	X, Y    int
	Seq     uint64
	Count   int
	Err     error
	At      time.Time
}

// Bus is a typed wrapper over EventBus. A nil *Bus drops everything.
type Bus struct {
	bus evbus.Bus
}

func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish stamps ev and delivers it to subscribers of ev.Topic. Synchronous
// subscribers run before Publish returns and must not publish themselves.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.bus.Publish(string(ev.Topic), ev)
}

// Subscribe runs fn on the publishing goroutine.
func (b *Bus) Subscribe(topic Topic, fn func(Event)) error {
	if b == nil {
		return nil
	}
	return b.bus.Subscribe(string(topic), fn)
}

