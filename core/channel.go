package core

import (
	"fmt"
	"time"
)

// ChannelType classifies the message class a channel carries. Routing
// currently probes agent2agent only; the remaining types exist for channel
// bookkeeping and broadcast pseudo-targets.
type ChannelType string

const (
	// ChannelAgentToAgent carries direct agent-to-agent messages.
	ChannelAgentToAgent ChannelType = "agent2agent"
	// ChannelOrgToOrg carries organization-level messages.
	ChannelOrgToOrg ChannelType = "org2org"
	// ChannelSensorToAgent carries sensor-derived context values.
	ChannelSensorToAgent ChannelType = "sensor2agent"
	// ChannelBroadcast carries fan-out messages.
	ChannelBroadcast ChannelType = "broadcast"
)

// ChannelStatus enumerates channel routing states.
type ChannelStatus string

const (
	// ChannelActive routes messages.
	ChannelActive ChannelStatus = "active"
	// ChannelPaused holds messages in the delivery queue.
	ChannelPaused ChannelStatus = "paused"
	// ChannelTerminated permanently stops routing.
	ChannelTerminated ChannelStatus = "terminated"
)

// Channel is a stateful routing path between two organizations for a given
// message class. Identity is the deterministic (source, target, type) triple;
// re-creating a channel with the same triple overwrites the prior record and
// resets its status to active.
type Channel struct {
	ID          string        `json:"id"`
	SourceOrgID string        `json:"source_org_id"`
	TargetOrgID string        `json:"target_org_id"`
	Type        ChannelType   `json:"type"`
	Status      ChannelStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Clone returns a copy safe for independent mutation.
func (c Channel) Clone() Channel { return c }

// ChannelID derives the deterministic identifier for the channel triple.
func ChannelID(sourceOrgID, targetOrgID string, channelType ChannelType) string {
	return fmt.Sprintf("%s->%s#%s", sourceOrgID, targetOrgID, channelType)
}
