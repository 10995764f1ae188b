// Package telemetry exports coordination metrics to Prometheus. The
// Collector subscribes to the event bus and counts every lifecycle event by
// name; gauges for queue depth and node status are fed by caller-provided
// callbacks so the collector never reaches into component internals.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hivemesh/hivemesh/core"
)

// Options configures a Collector instance.
type Options struct {
	// Registry receives all collector metrics. Defaults to a private
	// registry exposed through Handler.
	Registry *prometheus.Registry

	// QueueDepth, when set, feeds the hivemesh_queue_depth gauge.
	QueueDepth func() int

	// NodeCounts, when set, feeds the hivemesh_nodes gauge per status.
	NodeCounts func() map[core.NodeStatus]int
}

// Collector bridges the event bus to Prometheus.
type Collector struct {
	registry    *prometheus.Registry
	events      *prometheus.CounterVec
	unsubscribe func()
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(optFns ...func(o *Options)) *Collector {
	opts := Options{
		Registry: prometheus.NewRegistry(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	factory := promauto.With(opts.Registry)
	c := &Collector{
		registry: opts.Registry,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hivemesh_events_total",
			Help: "Lifecycle events published on the bus, by event name.",
		}, []string{"event"}),
	}

	if opts.QueueDepth != nil {
		depth := opts.QueueDepth
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "hivemesh_queue_depth",
			Help: "Tasks waiting in the global delivery queue.",
		}, func() float64 { return float64(depth()) })
	}
	if opts.NodeCounts != nil {
		counts := opts.NodeCounts
		for _, status := range []core.NodeStatus{core.NodeOnline, core.NodeBusy, core.NodeOffline} {
			s := status
			factory.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "hivemesh_nodes",
				Help:        "Registered nodes by status.",
				ConstLabels: prometheus.Labels{"status": string(s)},
			}, func() float64 { return float64(counts()[s]) })
		}
	}
	return c
}

// Attach subscribes the collector to bus; the returned state allows Detach.
func (c *Collector) Attach(bus *core.Bus) {
	c.unsubscribe = bus.Subscribe(func(ev core.Event) {
		c.events.WithLabelValues(ev.Name).Inc()
	})
}

// Detach stops counting bus events. Safe to call without a prior Attach.
func (c *Collector) Detach() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// EventCounter exposes the per-event counter, mainly for tests.
func (c *Collector) EventCounter(event string) prometheus.Counter {
	return c.events.WithLabelValues(event)
}

// Handler serves the collector's registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
