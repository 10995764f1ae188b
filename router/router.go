package router

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/logging"
	"github.com/hivemesh/hivemesh/registry"
)

// DefaultDeliveryDelay is the fixed simulated transfer time between routing
// and delivery of a message.
const DefaultDeliveryDelay = time.Second

var (
	// ErrUnknownOrganization is returned when routing a task whose source
	// organization has not been registered.
	ErrUnknownOrganization = errors.New("unknown source organization")

	// ErrUnknownChannel is returned when pausing or resuming a channel that
	// does not exist.
	ErrUnknownChannel = errors.New("unknown channel")
)

// Options configures a Router instance.
type Options struct {
	// Bus receives channel and routing lifecycle events. Defaults to a
	// private bus.
	Bus *core.Bus

	// Scheduler drives the fixed-delay deliveries. Defaults to the
	// wall-clock scheduler.
	Scheduler core.Scheduler

	// Fragments receives one audit fragment per delivered message.
	// Optional; nil disables audit writes.
	Fragments core.FragmentStore

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// DeliveryDelay is the simulated transfer time per message.
	DeliveryDelay time.Duration
}

// Stats aggregates channel and queue counts.
type Stats struct {
	Channels           int `json:"channels"`
	ActiveChannels     int `json:"active_channels"`
	PausedChannels     int `json:"paused_channels"`
	TerminatedChannels int `json:"terminated_channels"`
	QueuedTasks        int `json:"queued_tasks"`
	QueuedTotal        int `json:"queued_total"`
	DeliveredTotal     int `json:"delivered_total"`
}

// Router owns the channel map and the single global delivery queue. The
// queue is deliberately shared across all organizations: resuming any
// channel drains the whole backlog, re-queuing tasks that still have no
// matching channel at the tail.
type Router struct {
	mu       sync.Mutex
	channels map[string]*core.Channel
	queue    []core.Task

	queuedTotal    int
	deliveredTotal int

	orgs      *registry.Organizations
	bus       *core.Bus
	sched     core.Scheduler
	fragments core.FragmentStore
	logger    logging.Logger
	delay     time.Duration
}

// New creates a Router resolving organizations against the given registry.
func New(orgs *registry.Organizations, optFns ...func(o *Options)) *Router {
	opts := Options{
		Bus:           core.NewBus(),
		Scheduler:     core.NewScheduler(),
		Logger:        logging.NoOpLogger{},
		DeliveryDelay: DefaultDeliveryDelay,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Router{
		channels:  make(map[string]*core.Channel),
		orgs:      orgs,
		bus:       opts.Bus,
		sched:     opts.Scheduler,
		fragments: opts.Fragments,
		logger:    opts.Logger,
		delay:     opts.DeliveryDelay,
	}
}

// RegisterOrganization delegates to the organization registry. Exposed here
// because routing reads from it.
func (r *Router) RegisterOrganization(org core.Organization) {
	r.orgs.Register(org)
}

// CreateChannel upserts the channel identified by the deterministic
// (source, target, type) triple and returns a snapshot. Creation is
// idempotent on identity, not on state: re-creating an existing triple
// overwrites the record and resets its status to active.
func (r *Router) CreateChannel(sourceOrgID, targetOrgID string, channelType core.ChannelType) core.Channel {
	ch := core.Channel{
		ID:          core.ChannelID(sourceOrgID, targetOrgID, channelType),
		SourceOrgID: sourceOrgID,
		TargetOrgID: targetOrgID,
		Type:        channelType,
		Status:      core.ChannelActive,
		CreatedAt:   r.sched.Now(),
	}
	r.mu.Lock()
	stored := ch.Clone()
	r.channels[ch.ID] = &stored
	r.mu.Unlock()

	r.logger.Debug("channel created", "channel_id", ch.ID)
	r.bus.Publish(core.NewChannelEvent(core.EventChannelCreated, ch, nil))
	return ch
}

// Channel returns a snapshot of the channel and whether it exists.
func (r *Router) Channel(channelID string) (core.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[channelID]
	if !ok {
		return core.Channel{}, false
	}
	return ch.Clone(), true
}

// Route delivers the task over the first active agent2agent channel between
// the task's source organization and any target organization, or appends it
// to the global delivery queue when no such channel exists. An unknown
// source organization fails synchronously; this is the router's only error
// path and is never expressed as a task-status transition.
//
// Routing always probes the agent2agent channel type regardless of the
// task's semantic intent; the other channel types take no part in the
// decision.
func (r *Router) Route(task core.Task) error {
	sourceOrgID := core.OrgOf(task.SourceNode)
	if _, ok := r.orgs.Get(sourceOrgID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOrganization, sourceOrgID)
	}

	r.mu.Lock()
	var match *core.Channel
	for _, target := range task.TargetNodes {
		id := core.ChannelID(sourceOrgID, core.OrgOf(target), core.ChannelAgentToAgent)
		if ch, ok := r.channels[id]; ok && ch.Status == core.ChannelActive {
			cp := ch.Clone()
			match = &cp
			break
		}
	}
	if match == nil {
		r.queue = append(r.queue, task.Clone())
		r.queuedTotal++
		r.mu.Unlock()

		r.logger.Info("no active channel, task queued", "task_id", task.ID)
		r.bus.Publish(core.NewTaskEvent(core.EventTaskQueued, task))
		return nil
	}
	r.mu.Unlock()

	r.logger.Info("routing task", "task_id", task.ID, "channel_id", match.ID)
	r.bus.Publish(core.NewChannelEvent(core.EventTaskRouting, *match, &task))

	delivered := task.Clone()
	channel := *match
	r.sched.After(r.delay, func() { r.deliver(delivered, channel) })
	return nil
}

// deliver is the fixed-delay delivery body: it emits task:delivered and
// writes the delivery audit fragment, linking the task-completion fragment
// as parent when the memory surface already holds one.
func (r *Router) deliver(task core.Task, channel core.Channel) {
	r.mu.Lock()
	r.deliveredTotal++
	r.mu.Unlock()

	r.bus.Publish(core.NewChannelEvent(core.EventTaskDelivered, channel, &task))

	if r.fragments == nil {
		return
	}
	var parents []string
	for _, fr := range r.fragments.QueryByConversation(task.ID) {
		parents = append(parents, fr.ID)
		break
	}
	fragment := core.Fragment{
		ID:               core.NewID(),
		Timestamp:        r.sched.Now(),
		PlatformID:       channel.TargetOrgID,
		ConversationID:   task.ID,
		ContentHash:      core.HashPayload(task.Payload),
		RecursiveDepth:   0,
		ParentReferences: parents,
	}
	if err := r.fragments.Store(fragment); err != nil {
		r.logger.Error("failed to store delivery fragment", "task_id", task.ID, "error", err)
	}
}

// Broadcast derives one task per registered organization other than the
// source (fresh id, single broadcast pseudo-target) and routes each
// independently. Broadcast is not atomic: every derived task can succeed,
// queue or fail on its own; the returned error joins the individual
// failures.
func (r *Router) Broadcast(task core.Task) ([]core.Task, error) {
	sourceOrgID := core.OrgOf(task.SourceNode)
	var derived []core.Task
	var errs []error
	for _, org := range r.orgs.Snapshot() {
		if org.ID == sourceOrgID {
			continue
		}
		cp := task.Clone()
		cp.ID = core.NewID()
		cp.TargetNodes = []string{core.CompositeKey(org.ID, "broadcast")}
		if err := r.Route(cp); err != nil {
			errs = append(errs, err)
			continue
		}
		derived = append(derived, cp)
	}
	return derived, errors.Join(errs...)
}

// Pause sets the channel to paused and emits channel:paused.
func (r *Router) Pause(channelID string) error {
	ch, err := r.setStatus(channelID, core.ChannelPaused)
	if err != nil {
		return err
	}
	r.bus.Publish(core.NewChannelEvent(core.EventChannelPaused, ch, nil))
	return nil
}

// Resume sets the channel back to active, emits channel:resumed and drains
// the entire global queue in FIFO order by re-routing every queued task —
// including tasks that have nothing to do with the resumed channel. Tasks
// that still match no active channel re-queue at the tail. This coupling is
// a direct consequence of the single shared queue and is preserved.
func (r *Router) Resume(channelID string) error {
	ch, err := r.setStatus(channelID, core.ChannelActive)
	if err != nil {
		return err
	}
	r.bus.Publish(core.NewChannelEvent(core.EventChannelResumed, ch, nil))

	r.mu.Lock()
	backlog := r.queue
	r.queue = nil
	r.mu.Unlock()

	for _, queued := range backlog {
		if err := r.Route(queued); err != nil {
			// The source organization vanished from the registry is the only
			// way here; the task is dropped after logging since the registry
			// has no unregister path today.
			r.logger.Error("failed to re-route queued task", "task_id", queued.ID, "error", err)
		}
	}
	return nil
}

// Terminate permanently stops routing over the channel. Unlike pause there
// is no corresponding lifecycle event; re-creating the triple is the only
// way back to active.
func (r *Router) Terminate(channelID string) error {
	_, err := r.setStatus(channelID, core.ChannelTerminated)
	return err
}

func (r *Router) setStatus(channelID string, status core.ChannelStatus) (core.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[channelID]
	if !ok {
		return core.Channel{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channelID)
	}
	ch.Status = status
	return ch.Clone(), nil
}

// QueuedTasks returns a snapshot of the global delivery queue in FIFO order.
func (r *Router) QueuedTasks() []core.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Task, 0, len(r.queue))
	for _, t := range r.queue {
		out = append(out, t.Clone())
	}
	return out
}

// Stats returns the current channel and queue counts.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{
		Channels:       len(r.channels),
		QueuedTasks:    len(r.queue),
		QueuedTotal:    r.queuedTotal,
		DeliveredTotal: r.deliveredTotal,
	}
	for _, ch := range r.channels {
		switch ch.Status {
		case core.ChannelActive:
			s.ActiveChannels++
		case core.ChannelPaused:
			s.PausedChannels++
		case core.ChannelTerminated:
			s.TerminatedChannels++
		}
	}
	return s
}
