// Package hivemesh provides a high-level façade over the coordination core
// (organization and node registries, task coordinator, multiplex router),
// the memory surface, the session manager and optional telemetry. Most
// applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding the in-memory defaults)
//  2. Registering organizations and nodes
//  3. Submitting tasks (SubmitTask) and routing messages (Route, Broadcast)
//
// The façade wires every component onto one shared event bus and scheduler
// while keeping setup concise. All defaults are safe for local development
// and testing; production deployments typically supply a durable fragment
// store and a structured logger.
package hivemesh

import (
	"time"

	"github.com/hivemesh/hivemesh/coordinator"
	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/logging"
	"github.com/hivemesh/hivemesh/memory"
	"github.com/hivemesh/hivemesh/registry"
	"github.com/hivemesh/hivemesh/router"
	"github.com/hivemesh/hivemesh/session"
	"github.com/hivemesh/hivemesh/telemetry"
)

// Options configures the Mesh instance.
type Options struct {
	// Scheduler drives every delayed callback (completions, deliveries,
	// liveness checks, session sweeps). Defaults to the wall-clock
	// scheduler; tests substitute a manual one.
	Scheduler core.Scheduler

	// Fragments is the memory surface receiving audit fragments. Defaults
	// to the in-memory store.
	Fragments core.FragmentStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// HeartbeatInterval is the node liveness period H.
	HeartbeatInterval time.Duration

	// CompletionDelay is the simulated task execution time.
	CompletionDelay time.Duration

	// DeliveryDelay is the simulated message transfer time.
	DeliveryDelay time.Duration

	// SessionSecret signs handoff tokens. Empty disables the session
	// manager.
	SessionSecret []byte

	// EnableTelemetry attaches a Prometheus collector to the bus.
	EnableTelemetry bool
}

// Mesh is the high-level façade aggregating the coordination components on a
// shared bus.
type Mesh struct {
	bus         *core.Bus
	orgs        *registry.Organizations
	nodes       *registry.Nodes
	coordinator *coordinator.Coordinator
	router      *router.Router
	fragments   core.FragmentStore
	sessions    *session.Manager
	collector   *telemetry.Collector
}

// New creates a Mesh with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		Scheduler:         core.NewScheduler(),
		Fragments:         memory.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
		HeartbeatInterval: registry.DefaultHeartbeatInterval,
		CompletionDelay:   coordinator.DefaultCompletionDelay,
		DeliveryDelay:     router.DefaultDeliveryDelay,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	bus := core.NewBus()
	orgs := registry.NewOrganizations(bus, opts.Logger)
	nodes := registry.NewNodes(func(o *registry.NodesOptions) {
		o.Bus = bus
		o.Scheduler = opts.Scheduler
		o.Logger = opts.Logger
		o.HeartbeatInterval = opts.HeartbeatInterval
	})
	coord := coordinator.New(nodes, func(o *coordinator.Options) {
		o.Bus = bus
		o.Scheduler = opts.Scheduler
		o.Fragments = opts.Fragments
		o.Logger = opts.Logger
		o.CompletionDelay = opts.CompletionDelay
	})
	rtr := router.New(orgs, func(o *router.Options) {
		o.Bus = bus
		o.Scheduler = opts.Scheduler
		o.Fragments = opts.Fragments
		o.Logger = opts.Logger
		o.DeliveryDelay = opts.DeliveryDelay
	})

	m := &Mesh{
		bus:         bus,
		orgs:        orgs,
		nodes:       nodes,
		coordinator: coord,
		router:      rtr,
		fragments:   opts.Fragments,
	}

	if len(opts.SessionSecret) > 0 {
		m.sessions = session.NewManager(opts.SessionSecret, func(o *session.Options) {
			o.Scheduler = opts.Scheduler
			o.Logger = opts.Logger
		})
	}
	if opts.EnableTelemetry {
		m.collector = telemetry.NewCollector(func(o *telemetry.Options) {
			o.QueueDepth = func() int { return rtr.Stats().QueuedTasks }
			o.NodeCounts = nodes.StatusCounts
		})
		m.collector.Attach(bus)
	}
	return m
}

// Subscribe attaches a handler to the shared event bus and returns its
// unsubscribe function.
func (m *Mesh) Subscribe(h core.EventHandler) func() { return m.bus.Subscribe(h) }

// Bus exposes the shared event bus for advanced callers.
func (m *Mesh) Bus() *core.Bus { return m.bus }

// RegisterOrganization upserts a tenant organization.
func (m *Mesh) RegisterOrganization(org core.Organization) { m.orgs.Register(org) }

// RegisterNode inserts a worker node and starts its liveness timer.
func (m *Mesh) RegisterNode(node core.Node) { m.nodes.Register(node) }

// UnregisterNode removes a node and cancels its liveness timer.
func (m *Mesh) UnregisterNode(nodeID string) { m.nodes.Unregister(nodeID) }

// Heartbeat records a node heartbeat.
func (m *Mesh) Heartbeat(nodeID string) { m.nodes.Heartbeat(nodeID) }

// SubmitTask submits a task to the coordinator and returns the record after
// synchronous processing.
func (m *Mesh) SubmitTask(task core.Task) core.Task { return m.coordinator.CreateTask(task) }

// Task returns a task snapshot and whether it exists.
func (m *Mesh) Task(taskID string) (core.Task, bool) { return m.coordinator.Task(taskID) }

// CreateChannel upserts a routing channel between two organizations.
func (m *Mesh) CreateChannel(sourceOrgID, targetOrgID string, t core.ChannelType) core.Channel {
	return m.router.CreateChannel(sourceOrgID, targetOrgID, t)
}

// Route routes a message task between organizations.
func (m *Mesh) Route(task core.Task) error { return m.router.Route(task) }

// Broadcast fans a task out to every other registered organization.
func (m *Mesh) Broadcast(task core.Task) ([]core.Task, error) { return m.router.Broadcast(task) }

// PauseChannel pauses a routing channel.
func (m *Mesh) PauseChannel(channelID string) error { return m.router.Pause(channelID) }

// ResumeChannel resumes a routing channel and drains the delivery queue.
func (m *Mesh) ResumeChannel(channelID string) error { return m.router.Resume(channelID) }

// Fragments exposes the memory surface.
func (m *Mesh) Fragments() core.FragmentStore { return m.fragments }

// Sessions returns the session manager, or nil when no SessionSecret was
// configured.
func (m *Mesh) Sessions() *session.Manager { return m.sessions }

// Telemetry returns the Prometheus collector, or nil when telemetry is
// disabled.
func (m *Mesh) Telemetry() *telemetry.Collector { return m.collector }

// Nodes exposes the node registry for advanced callers.
func (m *Mesh) Nodes() *registry.Nodes { return m.nodes }

// Organizations exposes the organization registry for advanced callers.
func (m *Mesh) Organizations() *registry.Organizations { return m.orgs }

// CoordinatorStats returns node and task counts.
func (m *Mesh) CoordinatorStats() coordinator.Stats { return m.coordinator.Stats() }

// RouterStats returns channel and queue counts.
func (m *Mesh) RouterStats() router.Stats { return m.router.Stats() }

// Close stops liveness timers, session sweeps and telemetry.
func (m *Mesh) Close() {
	m.nodes.Close()
	if m.sessions != nil {
		m.sessions.Close()
	}
	if m.collector != nil {
		m.collector.Detach()
	}
}
