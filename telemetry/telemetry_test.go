package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemesh/hivemesh/core"
	meshtest "github.com/hivemesh/hivemesh/internal/testutil"
)

func TestCollectorCountsBusEvents(t *testing.T) {
	bus := core.NewBus()
	c := NewCollector()
	c.Attach(bus)

	bus.Publish(core.NewOrgEvent(core.EventOrgRegistered, meshtest.Org("org-a", "Alpha")))
	bus.Publish(core.NewTaskEvent(core.EventTaskQueued, meshtest.TaskFor("t1", "org-a:node-1")))
	bus.Publish(core.NewTaskEvent(core.EventTaskQueued, meshtest.TaskFor("t2", "org-a:node-1")))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.EventCounter(core.EventOrgRegistered)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.EventCounter(core.EventTaskQueued)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.EventCounter(core.EventTaskFailed)))
}

func TestDetachStopsCounting(t *testing.T) {
	bus := core.NewBus()
	c := NewCollector()
	c.Attach(bus)

	bus.Publish(core.NewOrgEvent(core.EventOrgRegistered, meshtest.Org("org-a", "Alpha")))
	c.Detach()
	bus.Publish(core.NewOrgEvent(core.EventOrgRegistered, meshtest.Org("org-b", "Beta")))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.EventCounter(core.EventOrgRegistered)))
	c.Detach() // idempotent
}

func TestHandlerExposesGauges(t *testing.T) {
	depth := 3
	c := NewCollector(func(o *Options) {
		o.QueueDepth = func() int { return depth }
		o.NodeCounts = func() map[core.NodeStatus]int {
			return map[core.NodeStatus]int{core.NodeOnline: 2, core.NodeBusy: 1}
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hivemesh_queue_depth 3`)
	assert.Contains(t, body, `hivemesh_nodes{status="online"} 2`)
	assert.Contains(t, body, `hivemesh_nodes{status="busy"} 1`)
	assert.Contains(t, body, `hivemesh_nodes{status="offline"} 0`)
}
