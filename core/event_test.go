package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskEventClonesTask(t *testing.T) {
	task := Task{ID: "t1", Status: TaskPending, TargetNodes: []string{"o1:n1"}}

	ev := NewTaskEvent(EventTaskCreated, task)

	require.NotNil(t, ev.Task)
	assert.Equal(t, EventTaskCreated, ev.Name)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	// Mutating the source task must not leak into the published payload.
	task.TargetNodes[0] = "mutated"
	assert.Equal(t, "o1:n1", ev.Task.TargetNodes[0])
}

func TestNewFailureEventCarriesReason(t *testing.T) {
	ev := NewFailureEvent(Task{ID: "t2", Status: TaskFailed}, ReasonNoCapableNodes)

	assert.Equal(t, EventTaskFailed, ev.Name)
	assert.Equal(t, ReasonNoCapableNodes, ev.Reason)
	require.NotNil(t, ev.Task)
	assert.Equal(t, "t2", ev.Task.ID)
}

func TestNewAssignmentEventCarriesPair(t *testing.T) {
	ev := NewAssignmentEvent(EventTaskAssigned, Task{ID: "t3"}, Node{ID: "n1", OrgID: "o1"})

	require.NotNil(t, ev.Task)
	require.NotNil(t, ev.Node)
	assert.Equal(t, "t3", ev.Task.ID)
	assert.Equal(t, "n1", ev.Node.ID)
}

func TestNewChannelEventWithoutTask(t *testing.T) {
	ch := Channel{ID: ChannelID("a", "b", ChannelAgentToAgent), SourceOrgID: "a", TargetOrgID: "b", Type: ChannelAgentToAgent, Status: ChannelActive}

	ev := NewChannelEvent(EventChannelPaused, ch, nil)

	require.NotNil(t, ev.Channel)
	assert.Nil(t, ev.Task)
	assert.Equal(t, "a->b#agent2agent", ev.Channel.ID)
}
