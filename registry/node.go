package registry

import (
	"sync"
	"time"

	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/logging"
)

// DefaultHeartbeatInterval is the liveness timer period H. A node is marked
// offline once it has been silent for more than twice this interval.
const DefaultHeartbeatInterval = 5 * time.Second

// NodesOptions configures a Nodes registry.
type NodesOptions struct {
	// Bus receives node lifecycle events. Defaults to a private bus.
	Bus *core.Bus

	// Scheduler drives the per-node liveness timers. Defaults to the
	// wall-clock scheduler.
	Scheduler core.Scheduler

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// HeartbeatInterval is the liveness timer period H.
	HeartbeatInterval time.Duration
}

// Nodes is the worker registry and liveness monitor. Each registered node
// gets a recurring liveness timer; unregistration is the only path that
// cancels it. Iteration order is insertion order, which the coordinator
// relies on for deterministic tie-breaking during assignment.
type Nodes struct {
	mu      sync.Mutex
	nodes   map[string]*core.Node
	order   []string
	cancels map[string]core.CancelFunc

	bus      *core.Bus
	sched    core.Scheduler
	logger   logging.Logger
	interval time.Duration
}

// NewNodes constructs an empty node registry.
func NewNodes(optFns ...func(o *NodesOptions)) *Nodes {
	opts := NodesOptions{
		Bus:               core.NewBus(),
		Scheduler:         core.NewScheduler(),
		Logger:            logging.NoOpLogger{},
		HeartbeatInterval: DefaultHeartbeatInterval,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Nodes{
		nodes:    make(map[string]*core.Node),
		cancels:  make(map[string]core.CancelFunc),
		bus:      opts.Bus,
		sched:    opts.Scheduler,
		logger:   opts.Logger,
		interval: opts.HeartbeatInterval,
	}
}

// HeartbeatInterval returns the liveness period H.
func (r *Nodes) HeartbeatInterval() time.Duration { return r.interval }

// Register inserts the node, emits node:registered and starts its recurring
// liveness timer. The caller supplies the initial status (typically online).
// A zero LastHeartbeat is initialized to the current time.
func (r *Nodes) Register(node core.Node) {
	r.mu.Lock()
	if node.LastHeartbeat.IsZero() {
		node.LastHeartbeat = r.sched.Now()
	}
	if _, exists := r.nodes[node.ID]; !exists {
		r.order = append(r.order, node.ID)
	}
	stored := node.Clone()
	r.nodes[node.ID] = &stored
	if cancel, ok := r.cancels[node.ID]; ok {
		cancel()
	}
	id := node.ID
	r.cancels[id] = r.sched.Every(r.interval, func() { r.checkLiveness(id) })
	r.mu.Unlock()

	r.logger.Debug("node registered", "node_id", node.ID, "org_id", node.OrgID)
	r.bus.Publish(core.NewNodeEvent(core.EventNodeRegistered, node))
}

// Unregister cancels the node's liveness timer, removes the record and emits
// node:unregistered. No-op if the node is absent. In-flight task completions
// referencing the node are not cancelled.
func (r *Nodes) Unregister(nodeID string) {
	r.mu.Lock()
	node, ok := r.nodes[nodeID]
	if !ok {
		r.mu.Unlock()
		return
	}
	removed := node.Clone()
	if cancel, ok := r.cancels[nodeID]; ok {
		cancel()
		delete(r.cancels, nodeID)
	}
	delete(r.nodes, nodeID)
	for i, id := range r.order {
		if id == nodeID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.bus.Publish(core.NewNodeEvent(core.EventNodeUnregistered, removed))
}

// Heartbeat records a heartbeat for the node. LastHeartbeat is monotonically
// non-decreasing; an offline node flips back to online and emits node:online.
// No-op if the node is absent.
func (r *Nodes) Heartbeat(nodeID string) {
	r.mu.Lock()
	node, ok := r.nodes[nodeID]
	if !ok {
		r.mu.Unlock()
		return
	}
	now := r.sched.Now()
	if now.After(node.LastHeartbeat) {
		node.LastHeartbeat = now
	}
	var revived *core.Node
	if node.Status == core.NodeOffline {
		node.Status = core.NodeOnline
		cp := node.Clone()
		revived = &cp
	}
	r.mu.Unlock()

	if revived != nil {
		r.logger.Info("node back online", "node_id", nodeID)
		r.bus.Publish(core.NewNodeEvent(core.EventNodeOnline, *revived))
	}
}

// checkLiveness is the per-node timer body. A node silent for more than 2H
// is marked offline and node:offline is emitted. Busy nodes are exempt (no
// busy → offline edge); re-firing on an already-offline node re-emits the
// event, which is accepted rather than deduplicated.
func (r *Nodes) checkLiveness(nodeID string) {
	r.mu.Lock()
	node, ok := r.nodes[nodeID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if node.Status == core.NodeBusy {
		r.mu.Unlock()
		return
	}
	silent := r.sched.Now().Sub(node.LastHeartbeat)
	if silent <= 2*r.interval {
		r.mu.Unlock()
		return
	}
	node.Status = core.NodeOffline
	cp := node.Clone()
	r.mu.Unlock()

	r.logger.Warn("node missed liveness window", "node_id", nodeID, "since_heartbeat", silent)
	r.bus.Publish(core.NewNodeEvent(core.EventNodeOffline, cp))
}

// Assign marks the node busy for task execution. Returns the updated record
// and false if the node is absent.
func (r *Nodes) Assign(nodeID string) (core.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[nodeID]
	if !ok {
		return core.Node{}, false
	}
	node.Status = core.NodeBusy
	return node.Clone(), true
}

// Release resets the node to online after a completion firing. The reset is
// unconditional: every completion firing independently returns its node to
// online regardless of intervening status changes.
func (r *Nodes) Release(nodeID string) (core.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[nodeID]
	if !ok {
		return core.Node{}, false
	}
	node.Status = core.NodeOnline
	return node.Clone(), true
}

// Get returns the node record and whether it is present.
func (r *Nodes) Get(nodeID string) (core.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[nodeID]
	if !ok {
		return core.Node{}, false
	}
	return node.Clone(), true
}

// All returns every node in insertion order.
func (r *Nodes) All() []core.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Node, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.nodes[id].Clone())
	}
	return out
}

// ByOrg returns the nodes belonging to the organization, insertion order.
func (r *Nodes) ByOrg(orgID string) []core.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Node
	for _, id := range r.order {
		if n := r.nodes[id]; n.OrgID == orgID {
			out = append(out, n.Clone())
		}
	}
	return out
}

// Online returns the nodes currently online, insertion order.
func (r *Nodes) Online() []core.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Node
	for _, id := range r.order {
		if n := r.nodes[id]; n.Status == core.NodeOnline {
			out = append(out, n.Clone())
		}
	}
	return out
}

// Len returns the number of registered nodes.
func (r *Nodes) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// StatusCounts returns the number of nodes per status.
func (r *Nodes) StatusCounts() map[core.NodeStatus]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[core.NodeStatus]int, 3)
	for _, n := range r.nodes {
		counts[n.Status]++
	}
	return counts
}

// Close cancels every liveness timer. The registry remains usable but no
// further liveness checks fire for already-registered nodes.
func (r *Nodes) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
	}
}
