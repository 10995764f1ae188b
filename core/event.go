package core

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names emitted on the Bus. Downstream behavior (audit
// fragment writes, demo output, telemetry) keys off these exact strings.
const (
	EventOrgRegistered    = "org:registered"
	EventNodeRegistered   = "node:registered"
	EventNodeOnline       = "node:online"
	EventNodeOffline      = "node:offline"
	EventNodeUnregistered = "node:unregistered"
	EventTaskCreated      = "task:created"
	EventTaskAssigned     = "task:assigned"
	EventTaskCompleted    = "task:completed"
	EventTaskFailed       = "task:failed"
	EventTaskQueued       = "task:queued"
	EventTaskRouting      = "task:routing"
	EventTaskDelivered    = "task:delivered"
	EventChannelCreated   = "channel:created"
	EventChannelPaused    = "channel:paused"
	EventChannelResumed   = "channel:resumed"
)

// ReasonNoCapableNodes is the failure reason attached to task:failed when the
// capable set for a task is empty.
const ReasonNoCapableNodes = "no_capable_nodes"

// Event is the tagged lifecycle variant published on the Bus. Exactly the
// entity fields relevant to the event name are populated; every payload
// carries the full entity (or entity pair), never a diff. After publication
// an event must be treated as immutable.
type Event struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Timestamp time.Time     `json:"timestamp"`
	Org       *Organization `json:"org,omitempty"`
	Node      *Node         `json:"node,omitempty"`
	Task      *Task         `json:"task,omitempty"`
	Channel   *Channel      `json:"channel,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// NewID generates a unique identifier for events, tasks and fragments.
func NewID() string { return uuid.NewString() }

func newEvent(name string) Event {
	return Event{ID: NewID(), Name: name, Timestamp: time.Now().UTC()}
}

// NewOrgEvent builds an organization lifecycle event carrying a clone of the
// organization record.
func NewOrgEvent(name string, org Organization) Event {
	e := newEvent(name)
	cp := org.Clone()
	e.Org = &cp
	return e
}

// NewNodeEvent builds a node lifecycle event carrying a clone of the node
// record.
func NewNodeEvent(name string, node Node) Event {
	e := newEvent(name)
	cp := node.Clone()
	e.Node = &cp
	return e
}

// NewTaskEvent builds a task lifecycle event carrying a clone of the task
// record.
func NewTaskEvent(name string, task Task) Event {
	e := newEvent(name)
	cp := task.Clone()
	e.Task = &cp
	return e
}

// NewAssignmentEvent builds a task/node pair event (task:assigned and the
// per-node completion firings).
func NewAssignmentEvent(name string, task Task, node Node) Event {
	e := NewTaskEvent(name, task)
	cp := node.Clone()
	e.Node = &cp
	return e
}

// NewFailureEvent builds a task:failed event with the failure reason.
func NewFailureEvent(task Task, reason string) Event {
	e := NewTaskEvent(EventTaskFailed, task)
	e.Reason = reason
	return e
}

// NewChannelEvent builds a channel lifecycle event. task may carry the task
// being routed or delivered over the channel; pass nil for pure channel
// state changes.
func NewChannelEvent(name string, ch Channel, task *Task) Event {
	e := newEvent(name)
	ccp := ch.Clone()
	e.Channel = &ccp
	if task != nil {
		tcp := task.Clone()
		e.Task = &tcp
	}
	return e
}
