package registry

import (
	"sync"

	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/logging"
)

// Organizations is the tenant registry. Registration is an upsert keyed by
// organization id; there is no validation and no error path. Safe for
// concurrent use.
type Organizations struct {
	mu     sync.RWMutex
	orgs   map[string]core.Organization
	order  []string
	bus    *core.Bus
	logger logging.Logger
}

// NewOrganizations constructs an empty organization registry publishing on bus.
// A nil logger is substituted with a NoOpLogger.
func NewOrganizations(bus *core.Bus, logger logging.Logger) *Organizations {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Organizations{
		orgs:   make(map[string]core.Organization),
		bus:    bus,
		logger: logger,
	}
}

// Register upserts the organization and emits org:registered. Re-registering
// an existing id overwrites its metadata but keeps its registration order.
func (r *Organizations) Register(org core.Organization) {
	r.mu.Lock()
	if _, exists := r.orgs[org.ID]; !exists {
		r.order = append(r.order, org.ID)
	}
	r.orgs[org.ID] = org.Clone()
	r.mu.Unlock()

	r.logger.Debug("organization registered", "org_id", org.ID, "tenant_id", org.TenantID)
	r.bus.Publish(core.NewOrgEvent(core.EventOrgRegistered, org))
}

// Get returns the organization record and whether it is present. It never
// fails; absence is reported through the boolean.
func (r *Organizations) Get(orgID string) (core.Organization, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.orgs[orgID]
	if !ok {
		return core.Organization{}, false
	}
	return org.Clone(), true
}

// Snapshot returns all organizations in registration order.
func (r *Organizations) Snapshot() []core.Organization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Organization, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.orgs[id].Clone())
	}
	return out
}

// Len returns the number of registered organizations.
func (r *Organizations) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orgs)
}
