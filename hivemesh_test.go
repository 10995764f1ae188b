package hivemesh

import (
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemesh/hivemesh/coordinator"
	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/internal/testutil"
	"github.com/hivemesh/hivemesh/memory"
	"github.com/hivemesh/hivemesh/router"
)

func newMesh(t *testing.T, extra ...func(o *Options)) (*Mesh, *testutil.ManualScheduler, *testutil.Recorder) {
	t.Helper()
	sched := testutil.NewManualScheduler(time.Unix(1000, 0))
	fns := append([]func(o *Options){func(o *Options) {
		o.Scheduler = sched
	}}, extra...)
	m := New(fns...)
	t.Cleanup(m.Close)
	return m, sched, testutil.NewRecorder(m.Bus())
}

func TestEndToEndCoordination(t *testing.T) {
	m, sched, recorder := newMesh(t)
	m.RegisterOrganization(testutil.Org("org-a", "Alpha"))
	m.RegisterNode(testutil.OnlineNode("node-1", "org-a", "compute"))

	task := m.SubmitTask(testutil.TaskFor("", core.CompositeKey("org-a", "node-0"), core.CompositeKey("org-a", "node-1")))
	require.NotEmpty(t, task.ID)
	assert.Equal(t, core.TaskProcessing, task.Status)

	sched.Advance(coordinator.DefaultCompletionDelay)

	got, ok := m.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, core.TaskCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	assert.Equal(t, 1, recorder.Count(core.EventTaskCompleted))
	// The completion wrote one fragment keyed by the task id.
	store := m.Fragments().(*memory.InMemoryStore)
	assert.Len(t, store.QueryByConversation(task.ID), 1)
}

func TestEndToEndRoutingAfterResume(t *testing.T) {
	m, sched, recorder := newMesh(t)
	m.RegisterOrganization(testutil.Org("org-a", "Alpha"))
	m.RegisterOrganization(testutil.Org("org-b", "Beta"))

	msg := testutil.TaskFor("m1", core.CompositeKey("org-a", "node-1"), core.CompositeKey("org-b", "node-2"))
	require.NoError(t, m.Route(msg))
	assert.Equal(t, 1, m.RouterStats().QueuedTasks)

	ch := m.CreateChannel("org-a", "org-b", core.ChannelAgentToAgent)
	require.NoError(t, m.ResumeChannel(ch.ID))
	sched.Advance(router.DefaultDeliveryDelay)

	assert.Zero(t, m.RouterStats().QueuedTasks)
	assert.Equal(t, 1, m.RouterStats().DeliveredTotal)
	assert.Equal(t, 1, recorder.Count(core.EventTaskDelivered))
}

func TestSessionManagerIsOptIn(t *testing.T) {
	m, _, _ := newMesh(t)
	assert.Nil(t, m.Sessions())

	withSessions, _, _ := newMesh(t, func(o *Options) {
		o.SessionSecret = []byte("secret")
	})
	require.NotNil(t, withSessions.Sessions())

	withSessions.Sessions().Open("s1", "agent-a")
	token, err := withSessions.Sessions().InitiateHandoff("s1", "agent-b")
	require.NoError(t, err)
	got, err := withSessions.Sessions().CompleteHandoff(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-b", got.OwnerAgent)
}

func TestTelemetryCountsMeshEvents(t *testing.T) {
	m, _, _ := newMesh(t, func(o *Options) {
		o.EnableTelemetry = true
	})
	require.NotNil(t, m.Telemetry())

	m.RegisterOrganization(testutil.Org("org-a", "Alpha"))
	m.RegisterNode(testutil.OnlineNode("node-1", "org-a"))

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Telemetry().EventCounter(core.EventOrgRegistered)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Telemetry().EventCounter(core.EventNodeRegistered)))
}

func TestBroadcastThroughFacade(t *testing.T) {
	m, _, _ := newMesh(t)
	m.RegisterOrganization(testutil.Org("org-a", "Alpha"))
	m.RegisterOrganization(testutil.Org("org-b", "Beta"))
	m.RegisterOrganization(testutil.Org("org-c", "Gamma"))

	derived, err := m.Broadcast(testutil.TaskFor("t1", core.CompositeKey("org-a", "node-1")))
	require.NoError(t, err)
	assert.Len(t, derived, 2)
	assert.Equal(t, 2, m.RouterStats().QueuedTasks)
}

func TestNodeLivenessThroughFacade(t *testing.T) {
	m, sched, recorder := newMesh(t)
	m.RegisterOrganization(testutil.Org("org-a", "Alpha"))
	m.RegisterNode(testutil.OnlineNode("node-1", "org-a"))

	// Silent for 3H: the liveness check at 3H sees silence > 2H.
	sched.Advance(3 * m.Nodes().HeartbeatInterval())

	require.GreaterOrEqual(t, recorder.Count(core.EventNodeOffline), 1)
	got, ok := m.Nodes().Get("node-1")
	require.True(t, ok)
	assert.Equal(t, core.NodeOffline, got.Status)

	m.Heartbeat("node-1")
	got, _ = m.Nodes().Get("node-1")
	assert.Equal(t, core.NodeOnline, got.Status)
	assert.Equal(t, 1, recorder.Count(core.EventNodeOnline))
}
