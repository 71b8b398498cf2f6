// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "translate_relay"

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	// Inbound transcription events
	EventsReceived *prometheus.CounterVec // labels: action (partial, final)
	EventsDropped  *prometheus.CounterVec // labels: reason

	// Gate decisions
	ChangeGateSkipped   prometheus.Counter
	SentenceGateBypass  prometheus.Counter
	StabilityGateFilter prometheus.Counter

	// Pipeline dispatch
	TranslationsDispatched prometheus.Counter
	TranslationsPublished  *prometheus.CounterVec // labels: action
	TranslationErrors      *prometheus.CounterVec // labels: reason
	ForcePublishes         prometheus.Counter
	HoldsApplied           prometheus.Counter

	TranslationLatency prometheus.Histogram
	PublishLatency     *prometheus.HistogramVec

	// Bus connection state
	BusConnected     prometheus.Gauge
	BusReconnects    prometheus.Counter
	BusPublishErrors *prometheus.CounterVec

	ActiveStates prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of inbound transcription events received",
		}, []string{"action"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of inbound events dropped before dispatch",
		}, []string{"reason"}),

		ChangeGateSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_gate_skipped_total",
			Help:      "Total number of partials skipped by the change gate",
		}),
		SentenceGateBypass: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentence_gate_bypass_total",
			Help:      "Total number of debounces bypassed by a sentence boundary",
		}),
		StabilityGateFilter: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stability_gate_filtered_total",
			Help:      "Total number of published texts trimmed by the stability gate",
		}),

		TranslationsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_dispatched_total",
			Help:      "Total number of translation tasks dispatched",
		}),
		TranslationsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_published_total",
			Help:      "Total number of translation payloads published",
		}, []string{"action"}),
		TranslationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_errors_total",
			Help:      "Total number of translation task failures",
		}, []string{"reason"}),
		ForcePublishes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "force_publishes_total",
			Help:      "Total number of force-publishes (max-hold timer or max consecutive holds)",
		}),
		HoldsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_applied_total",
			Help:      "Total number of times a translation result was held rather than published",
		}),

		TranslationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Latency of translation provider calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		PublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_seconds",
			Help:      "Latency of bus publish calls in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"action"}),

		BusConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_connected",
			Help:      "Whether the relay is currently connected to the message bus (1=connected, 0=not)",
		}),
		BusReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_reconnects_total",
			Help:      "Total number of bus reconnect events",
		}),
		BusPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_publish_errors_total",
			Help:      "Total number of bus publish errors",
		}, []string{"action"}),

		ActiveStates: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_segment_states",
			Help:      "Number of (sessionId, channelId, targetLang) states currently tracked",
		}),
	}
}

// RecordEventReceived records an inbound transcription event.
func (m *Metrics) RecordEventReceived(action string) {
	m.EventsReceived.WithLabelValues(action).Inc()
}

// RecordEventDropped records an inbound event dropped before dispatch.
func (m *Metrics) RecordEventDropped(reason string) {
	m.EventsDropped.WithLabelValues(reason).Inc()
}

// RecordTranslationPublished records a successfully published translation.
func (m *Metrics) RecordTranslationPublished(action string, latencySeconds float64) {
	m.TranslationsPublished.WithLabelValues(action).Inc()
	m.PublishLatency.WithLabelValues(action).Observe(latencySeconds)
}

// RecordTranslationError records a translation task failure.
func (m *Metrics) RecordTranslationError(reason string) {
	m.TranslationErrors.WithLabelValues(reason).Inc()
}

// RecordBusPublishError records a bus publish failure for an action
// ("partial" or "final").
func (m *Metrics) RecordBusPublishError(action string) {
	m.BusPublishErrors.WithLabelValues(action).Inc()
}

// SetBusConnected updates the bus connection gauge.
func (m *Metrics) SetBusConnected(connected bool) {
	if connected {
		m.BusConnected.Set(1)
	} else {
		m.BusConnected.Set(0)
	}
}
