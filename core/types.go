package core

import (
	"strings"
	"time"
)

// NodeStatus enumerates the liveness / occupancy states of a registered node.
// Transitions: online ⇄ offline (heartbeat / liveness timeout), online → busy
// (task assignment), busy → online (task completion). There is no busy →
// offline edge; a silent busy node stays busy until its completion fires.
type NodeStatus string

const (
	// NodeOnline indicates the node heartbeats recently and accepts work.
	NodeOnline NodeStatus = "online"
	// NodeBusy indicates the node currently executes an assigned task.
	NodeBusy NodeStatus = "busy"
	// NodeOffline indicates the node missed its liveness window.
	NodeOffline NodeStatus = "offline"
)

// TaskStatus enumerates task lifecycle states. failed and completed are
// terminal; completedAt is set only on completed.
type TaskStatus string

const (
	// TaskPending is the initial state of a submitted task.
	TaskPending TaskStatus = "pending"
	// TaskProcessing indicates at least one node has been assigned.
	TaskProcessing TaskStatus = "processing"
	// TaskCompleted is the terminal success state.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed is the terminal failure state (e.g. no capable nodes).
	TaskFailed TaskStatus = "failed"
)

// Organization is a registered tenant. Immutable after registration except
// for metadata overwrite on re-registration (registration is an upsert).
type Organization struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	TenantID string         `json:"tenant_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (o Organization) Clone() Organization {
	cp := o
	if o.Metadata != nil {
		cp.Metadata = make(map[string]any, len(o.Metadata))
		for k, v := range o.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

// Node is a registered worker. OrgID is a plain foreign key; it is not
// validated against the organization registry.
type Node struct {
	ID            string     `json:"id"`
	AgentID       string     `json:"agent_id"`
	OrgID         string     `json:"org_id"`
	Capabilities  []string   `json:"capabilities,omitempty"`
	Status        NodeStatus `json:"status"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
}

// Clone returns a deep copy safe for independent mutation.
func (n Node) Clone() Node {
	cp := n
	if n.Capabilities != nil {
		cp.Capabilities = append([]string(nil), n.Capabilities...)
	}
	return cp
}

// CompositeKey returns the Key of a node, the "orgId:nodeId" string used to
// name a node as a task source or target.
func (n Node) CompositeKey() string { return CompositeKey(n.OrgID, n.ID) }

// Task is a unit of work submitted to the coordinator or router. Tasks are
// append-only records: they are never deleted, only transitioned.
type Task struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Priority    int        `json:"priority"`
	SourceNode  string     `json:"source_node"`
	TargetNodes []string   `json:"target_nodes"`
	Payload     any        `json:"payload,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe for independent mutation. Payload is shared
// since it is treated as opaque and never mutated by the core.
func (t Task) Clone() Task {
	cp := t
	if t.TargetNodes != nil {
		cp.TargetNodes = append([]string(nil), t.TargetNodes...)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return cp
}

// CompositeKey builds the "orgId:nodeId" composite key naming a node.
func CompositeKey(orgID, nodeID string) string { return orgID + ":" + nodeID }

// OrgOf extracts the organization prefix (before the first ':') of a
// composite key. A key without a separator is returned unchanged.
func OrgOf(composite string) string {
	if i := strings.Index(composite, ":"); i >= 0 {
		return composite[:i]
	}
	return composite
}
