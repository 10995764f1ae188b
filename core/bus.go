package core

import "sync"

// EventHandler receives published lifecycle events. Handlers run
// synchronously on the publishing goroutine and must not block; a handler
// that needs to perform slow work should hand the event off to its own
// goroutine or channel.
type EventHandler func(Event)

// Bus is the observer registry carrying lifecycle events between the
// coordination components and any number of subscribers. It is safe for
// concurrent use. Events are delivered to every handler subscribed at
// publish time, in unspecified order.
type Bus struct {
	mu       sync.RWMutex
	seq      int
	handlers map[int]EventHandler
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]EventHandler)}
}

// Subscribe registers a handler and returns a function removing it again.
// Unsubscribing is idempotent.
func (b *Bus) Subscribe(h EventHandler) func() {
	b.mu.Lock()
	id := b.seq
	b.seq++
	b.handlers[id] = h
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to all current subscribers. The handler set is
// snapshotted first so handlers may subscribe or unsubscribe during delivery.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	snapshot := make([]EventHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()
	for _, h := range snapshot {
		h(ev)
	}
}
