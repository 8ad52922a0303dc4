// Package metric provides Prometheus metrics for SnapMesh.
//
// It exposes counters for marker and message traffic, session
// lifecycle counters, and a completion-latency histogram. All metrics
// live under the "snapmesh" namespace.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snapmesh"

// Metrics holds all application metrics, registered on a dedicated
// registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// Session lifecycle.
	SessionsInitiated prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsFailed    prometheus.Counter
	SessionsPending   prometheus.Gauge

	// Protocol traffic.
	MarkersSent      prometheus.Counter
	MarkersReceived  prometheus.Counter
	MessagesRecorded prometheus.Counter
	MessagesHandled  prometheus.Counter

	// SessionDuration observes wall-clock seconds from initiation to
	// global completion.
	SessionDuration prometheus.Histogram

	// SnapshotBytes observes the serialized size of persisted snapshots.
	SnapshotBytes prometheus.Histogram
}

// New creates a Metrics set registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SessionsInitiated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_initiated_total",
			Help:      "Number of snapshot sessions initiated.",
		}),
		SessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Number of snapshot sessions that reached global completion.",
		}),
		SessionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Number of snapshot sessions abandoned before completion.",
		}),
		SessionsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_pending",
			Help:      "Snapshot sessions currently awaiting contributions.",
		}),
		MarkersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_sent_total",
			Help:      "Markers emitted on outgoing channels.",
		}),
		MarkersReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_received_total",
			Help:      "Markers received on incoming channels, duplicates included.",
		}),
		MessagesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_recorded_total",
			Help:      "Application messages recorded as in-transit.",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "Application messages dispatched to the application hook.",
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock time from initiation to global completion.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		SnapshotBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Serialized size of persisted global snapshots.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
		}),
	}

	reg.MustRegister(
		m.SessionsInitiated,
		m.SessionsCompleted,
		m.SessionsFailed,
		m.SessionsPending,
		m.MarkersSent,
		m.MarkersReceived,
		m.MessagesRecorded,
		m.MessagesHandled,
		m.SessionDuration,
		m.SnapshotBytes,
	)

	return m
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
