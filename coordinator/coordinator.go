package coordinator

import (
	"strings"
	"sync"
	"time"

	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/logging"
	"github.com/hivemesh/hivemesh/registry"
)

// DefaultCompletionDelay is the fixed simulated execution time between task
// assignment and completion.
const DefaultCompletionDelay = 2 * time.Second

// Options configures a Coordinator instance.
type Options struct {
	// Bus receives task lifecycle events. Defaults to a private bus.
	Bus *core.Bus

	// Scheduler drives the fixed-delay completions. Defaults to the
	// wall-clock scheduler.
	Scheduler core.Scheduler

	// Fragments receives one audit fragment per completed task. Optional;
	// nil disables audit writes.
	Fragments core.FragmentStore

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// CompletionDelay is the simulated execution time per assignment.
	CompletionDelay time.Duration
}

// Stats aggregates task counts by status and node counts by status.
type Stats struct {
	TotalNodes      int `json:"total_nodes"`
	OnlineNodes     int `json:"online_nodes"`
	BusyNodes       int `json:"busy_nodes"`
	OfflineNodes    int `json:"offline_nodes"`
	TotalTasks      int `json:"total_tasks"`
	PendingTasks    int `json:"pending_tasks"`
	ProcessingTasks int `json:"processing_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	FailedTasks     int `json:"failed_tasks"`
}

// Coordinator owns the task map and drives the task state machine. Tasks are
// append-only: they are inserted on submission and only ever transitioned,
// never deleted. The node registry is consulted for matching and mutated
// through its Assign/Release methods only.
type Coordinator struct {
	mu    sync.Mutex
	tasks map[string]*core.Task
	order []string

	nodes     *registry.Nodes
	bus       *core.Bus
	sched     core.Scheduler
	fragments core.FragmentStore
	logger    logging.Logger
	delay     time.Duration
}

// New creates a Coordinator matching tasks against the given node registry.
func New(nodes *registry.Nodes, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Bus:             core.NewBus(),
		Scheduler:       core.NewScheduler(),
		Logger:          logging.NoOpLogger{},
		CompletionDelay: DefaultCompletionDelay,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Coordinator{
		tasks:     make(map[string]*core.Task),
		nodes:     nodes,
		bus:       opts.Bus,
		sched:     opts.Scheduler,
		fragments: opts.Fragments,
		logger:    opts.Logger,
		delay:     opts.CompletionDelay,
	}
}

// CreateTask submits a task for coordination and returns a snapshot of the
// record after synchronous processing (failed, or processing with nodes
// assigned and completions scheduled). An empty ID is filled in; status and
// creation time are always set by the coordinator.
//
// Assignment failure (no capable nodes) is reported through task status plus
// a task:failed event, never through an error.
func (c *Coordinator) CreateTask(task core.Task) core.Task {
	if task.ID == "" {
		task.ID = core.NewID()
	}
	task.Status = core.TaskPending
	task.CreatedAt = c.sched.Now()
	task.CompletedAt = nil

	c.mu.Lock()
	stored := task.Clone()
	c.tasks[task.ID] = &stored
	c.order = append(c.order, task.ID)
	c.mu.Unlock()

	c.bus.Publish(core.NewTaskEvent(core.EventTaskCreated, task))

	capable := c.capableNodes(task.TargetNodes)
	if len(capable) == 0 {
		c.logger.Warn("no capable nodes for task", "task_id", task.ID)
		failed := c.transition(task.ID, core.TaskFailed, false)
		c.bus.Publish(core.NewFailureEvent(failed, core.ReasonNoCapableNodes))
		return failed
	}

	selected := selectNodes(capable, len(task.TargetNodes))
	processing := c.transition(task.ID, core.TaskProcessing, false)
	for _, node := range selected {
		assigned, ok := c.nodes.Assign(node.ID)
		if !ok {
			continue
		}
		c.logger.Info("task assigned", "task_id", task.ID, "node_id", node.ID)
		c.bus.Publish(core.NewAssignmentEvent(core.EventTaskAssigned, processing, assigned))

		taskID, nodeID := task.ID, node.ID
		c.sched.After(c.delay, func() { c.complete(taskID, nodeID) })
	}
	snapshot, _ := c.Task(task.ID)
	return snapshot
}

// capableNodes computes the capable set: every online node where some target
// string contains the node id or the node's org id. The containment match is
// deliberately substring based, so a node named "node-1" also matches a
// target naming "node-10"; see the open questions in DESIGN.md.
func (c *Coordinator) capableNodes(targets []string) []core.Node {
	var capable []core.Node
	for _, node := range c.nodes.Online() {
		for _, target := range targets {
			if strings.Contains(target, node.ID) || strings.Contains(target, node.OrgID) {
				capable = append(capable, node)
				break
			}
		}
	}
	return capable
}

// selectNodes picks up to min(len(capable), targetCount) nodes, preferring
// online status, ties broken by registry insertion order (the order capable
// arrives in). The capable set is online-only today, so the preference pass
// is a stable no-op kept for parity with the selection rule.
func selectNodes(capable []core.Node, targetCount int) []core.Node {
	ranked := make([]core.Node, 0, len(capable))
	for _, n := range capable {
		if n.Status == core.NodeOnline {
			ranked = append(ranked, n)
		}
	}
	for _, n := range capable {
		if n.Status != core.NodeOnline {
			ranked = append(ranked, n)
		}
	}
	limit := targetCount
	if len(ranked) < limit {
		limit = len(ranked)
	}
	return ranked[:limit]
}

// complete is the fixed-delay completion body for one assignment. It resets
// the triggering node to online and applies the task-level completed
// transition; with multiple assigned nodes each firing repeats the
// transition (idempotent for the task, independent for the node). The first
// transition also writes the audit fragment.
func (c *Coordinator) complete(taskID, nodeID string) {
	released, _ := c.nodes.Release(nodeID)

	c.mu.Lock()
	task, ok := c.tasks[taskID]
	if !ok {
		c.mu.Unlock()
		return
	}
	first := task.Status != core.TaskCompleted
	task.Status = core.TaskCompleted
	if task.CompletedAt == nil {
		at := c.sched.Now()
		task.CompletedAt = &at
	}
	snapshot := task.Clone()
	c.mu.Unlock()

	c.bus.Publish(core.NewAssignmentEvent(core.EventTaskCompleted, snapshot, released))

	if first && c.fragments != nil {
		fragment := core.Fragment{
			ID:             core.NewID(),
			Timestamp:      c.sched.Now(),
			PlatformID:     core.OrgOf(snapshot.SourceNode),
			ConversationID: snapshot.ID,
			ContentHash:    core.HashPayload(snapshot.Payload),
			RecursiveDepth: 0,
		}
		if err := c.fragments.Store(fragment); err != nil {
			c.logger.Error("failed to store completion fragment", "task_id", taskID, "error", err)
		}
	}
}

// transition applies a status change under the task lock and returns a
// snapshot. setCompleted also stamps CompletedAt.
func (c *Coordinator) transition(taskID string, status core.TaskStatus, setCompleted bool) core.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.tasks[taskID]
	if !ok {
		return core.Task{}
	}
	task.Status = status
	if setCompleted && task.CompletedAt == nil {
		at := c.sched.Now()
		task.CompletedAt = &at
	}
	return task.Clone()
}

// Task returns a snapshot of the task record and whether it exists.
func (c *Coordinator) Task(taskID string) (core.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.tasks[taskID]
	if !ok {
		return core.Task{}, false
	}
	return task.Clone(), true
}

// PendingTasks returns the tasks still pending, in submission order.
func (c *Coordinator) PendingTasks() []core.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.Task
	for _, id := range c.order {
		if t := c.tasks[id]; t.Status == core.TaskPending {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Stats returns the current task and node counts.
func (c *Coordinator) Stats() Stats {
	nodeCounts := c.nodes.StatusCounts()

	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		OnlineNodes:  nodeCounts[core.NodeOnline],
		BusyNodes:    nodeCounts[core.NodeBusy],
		OfflineNodes: nodeCounts[core.NodeOffline],
		TotalTasks:   len(c.tasks),
	}
	s.TotalNodes = s.OnlineNodes + s.BusyNodes + s.OfflineNodes
	for _, t := range c.tasks {
		switch t.Status {
		case core.TaskPending:
			s.PendingTasks++
		case core.TaskProcessing:
			s.ProcessingTasks++
		case core.TaskCompleted:
			s.CompletedTasks++
		case core.TaskFailed:
			s.FailedTasks++
		}
	}
	return s
}
