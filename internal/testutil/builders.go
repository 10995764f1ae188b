package testutil

import (
	"github.com/hivemesh/hivemesh/core"
)

// OnlineNode builds an online node with sensible defaults for tests.
func OnlineNode(nodeID, orgID string, capabilities ...string) core.Node {
	return core.Node{
		ID:           nodeID,
		AgentID:      "agent-" + nodeID,
		OrgID:        orgID,
		Capabilities: capabilities,
		Status:       core.NodeOnline,
	}
}

// TaskFor builds a pending task from the source composite key to the given
// targets.
func TaskFor(taskID, sourceNode string, targets ...string) core.Task {
	return core.Task{
		ID:          taskID,
		Type:        "compute",
		Priority:    1,
		SourceNode:  sourceNode,
		TargetNodes: targets,
		Payload:     map[string]any{"task": taskID},
	}
}

// Org builds an organization record.
func Org(orgID, name string) core.Organization {
	return core.Organization{ID: orgID, Name: name, TenantID: "tenant-" + orgID}
}
