package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all structure-level metrics
type Metrics struct {
	// Registry metrics
	TrackedBlocks    prometheus.Gauge
	RegisteredTypes  prometheus.Gauge
	OwnerResolutions *prometheus.CounterVec
	PortNameLookups  *prometheus.CounterVec

	// Component metrics
	ComponentsCreated   prometheus.Counter
	ComponentsDestroyed prometheus.Counter
	CycleDuration       *prometheus.HistogramVec

	// Peer metrics
	PeerConnected       prometheus.Gauge
	PeerEventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all structure metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TrackedBlocks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "finroc",
				Subsystem: "registry",
				Name:      "tracked_blocks",
				Help:      "Number of component memory blocks currently tracked",
			},
		),

		RegisteredTypes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "finroc",
				Subsystem: "registry",
				Name:      "registered_types",
				Help:      "Number of component types with registered port names",
			},
		),

		OwnerResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finroc",
				Subsystem: "registry",
				Name:      "owner_resolutions_total",
				Help:      "Total number of owner lookups by result",
			},
			[]string{"result"},
		),

		PortNameLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finroc",
				Subsystem: "registry",
				Name:      "port_name_lookups_total",
				Help:      "Total number of auto-generated port name lookups by result",
			},
			[]string{"result"},
		),

		ComponentsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "finroc",
				Subsystem: "component",
				Name:      "created_total",
				Help:      "Total number of components created through the factory",
			},
		),

		ComponentsDestroyed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "finroc",
				Subsystem: "component",
				Name:      "destroyed_total",
				Help:      "Total number of components destroyed",
			},
		),

		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "finroc",
				Subsystem: "thread_container",
				Name:      "cycle_duration_seconds",
				Help:      "Duration of one update cycle of a thread container",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"container"},
		),

		PeerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "finroc",
				Subsystem: "peer",
				Name:      "connected",
				Help:      "Peer connection status (0=disconnected, 1=connected)",
			},
		),

		PeerEventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finroc",
				Subsystem: "peer",
				Name:      "events_published_total",
				Help:      "Total number of structure events published to the peer network",
			},
			[]string{"event"},
		),
	}
}

// collectors returns every metric for registration
func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.TrackedBlocks,
		c.RegisteredTypes,
		c.OwnerResolutions,
		c.PortNameLookups,
		c.ComponentsCreated,
		c.ComponentsDestroyed,
		c.CycleDuration,
		c.PeerConnected,
		c.PeerEventsPublished,
	}
}

// RecordTrackedBlocks updates the tracked block gauge.
// All Record methods are safe on a nil receiver so callers can run without metrics.
func (c *Metrics) RecordTrackedBlocks(n int) {
	if c == nil {
		return
	}
	c.TrackedBlocks.Set(float64(n))
}

// RecordRegisteredTypes updates the registered type gauge
func (c *Metrics) RecordRegisteredTypes(n int) {
	if c == nil {
		return
	}
	c.RegisteredTypes.Set(float64(n))
}

// RecordOwnerResolution increments the owner lookup counter
func (c *Metrics) RecordOwnerResolution(found bool) {
	if c == nil {
		return
	}
	result := "found"
	if !found {
		result = "not_found"
	}
	c.OwnerResolutions.WithLabelValues(result).Inc()
}

// RecordPortNameLookup increments the port name lookup counter
func (c *Metrics) RecordPortNameLookup(resolved bool) {
	if c == nil {
		return
	}
	result := "resolved"
	if !resolved {
		result = "unresolved"
	}
	c.PortNameLookups.WithLabelValues(result).Inc()
}

// RecordComponentCreated increments the created component counter
func (c *Metrics) RecordComponentCreated() {
	if c == nil {
		return
	}
	c.ComponentsCreated.Inc()
}

// RecordComponentDestroyed increments the destroyed component counter
func (c *Metrics) RecordComponentDestroyed() {
	if c == nil {
		return
	}
	c.ComponentsDestroyed.Inc()
}

// RecordCycleDuration records the duration of one update cycle
func (c *Metrics) RecordCycleDuration(container string, duration time.Duration) {
	if c == nil {
		return
	}
	c.CycleDuration.WithLabelValues(container).Observe(duration.Seconds())
}

// RecordPeerStatus updates peer connection status
func (c *Metrics) RecordPeerStatus(connected bool) {
	if c == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	c.PeerConnected.Set(value)
}

// RecordPeerEvent increments the published event counter
func (c *Metrics) RecordPeerEvent(event string) {
	if c == nil {
		return
	}
	c.PeerEventsPublished.WithLabelValues(event).Inc()
}
