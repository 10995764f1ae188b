package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var a, b []string
	bus.Subscribe(func(ev Event) { a = append(a, ev.Name) })
	bus.Subscribe(func(ev Event) { b = append(b, ev.Name) })

	bus.Publish(newEvent(EventTaskCreated))
	bus.Publish(newEvent(EventTaskCompleted))

	assert.Equal(t, []string{EventTaskCreated, EventTaskCompleted}, a)
	assert.Equal(t, []string{EventTaskCreated, EventTaskCompleted}, b)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var got []string
	unsubscribe := bus.Subscribe(func(ev Event) { got = append(got, ev.Name) })

	bus.Publish(newEvent(EventNodeRegistered))
	unsubscribe()
	unsubscribe() // idempotent
	bus.Publish(newEvent(EventNodeOffline))

	assert.Equal(t, []string{EventNodeRegistered}, got)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Publish(newEvent(EventOrgRegistered)) })
}
