package testutil

import (
	"sync"

	"github.com/hivemesh/hivemesh/core"
)

// Recorder captures events published on a core.Bus for later assertions.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

// NewRecorder creates a recorder subscribed to bus.
func NewRecorder(bus *core.Bus) *Recorder {
	r := &Recorder{}
	bus.Subscribe(r.record)
	return r
}

func (r *Recorder) record(ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a snapshot of all captured events in publication order.
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events...)
}

// Names returns the captured event names in publication order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, ev := range r.events {
		names[i] = ev.Name
	}
	return names
}

// Named returns the captured events matching name, in publication order.
func (r *Recorder) Named(name string) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns how many captured events match name.
func (r *Recorder) Count(name string) int {
	return len(r.Named(name))
}

// Reset discards all captured events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
