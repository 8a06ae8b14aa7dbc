// Package telemetry turns collector and scoring events into logs, metrics
// and trace events.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-quorum/infrastructure/source"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Metric names understood by PrometheusMetrics. Unknown names fall back to
// generic vectors labelled by name.
const (
	MetricFetchTotal      = "fetch_total"
	MetricFetchLatency    = "fetch"
	MetricResponseScore   = "response_score"
	MetricScoringDegraded = "scoring_degraded_total"
	MetricRankedResponses = "ranked_responses"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements ports.MetricsCollector with Prometheus vectors.
type PrometheusMetrics struct {
	fetchTotal      *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
	responseScore   *prometheus.HistogramVec
	scoringDegraded *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	backendTokens   *prometheus.CounterVec
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	distributions   *prometheus.HistogramVec
	gauges          *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the metric vectors and registers them with
// reg. Pass prometheus.DefaultRegisterer to expose them on the default
// /metrics handler.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_fetch_total",
				Help: "Source fetches by outcome.",
			},
			[]string{"source", "status"},
		),
		fetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_fetch_duration_seconds",
				Help:    "Time taken by a single source fetch.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"source"},
		),
		responseScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_response_score",
				Help:    "Composite score assigned to each ranked response.",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"source"},
		),
		scoringDegraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_scoring_degraded_total",
				Help: "Scoring stages that fell back to a degraded computation.",
			},
			[]string{"stage"},
		),
		backendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_backend_requests_total",
				Help: "Requests made to LLM backends.",
			},
			[]string{"source", "provider", "model", "status"},
		),
		backendLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_backend_latency_seconds",
				Help:    "Latency of LLM backend requests.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 11),
			},
			[]string{"source", "provider", "model", "status"},
		),
		backendTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_backend_tokens_total",
				Help: "Tokens consumed by LLM backends.",
			},
			[]string{"source", "provider", "model", "token_type"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_operations_total",
				Help: "Generic operation counters.",
			},
			[]string{"operation"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_operation_duration_seconds",
				Help:    "Generic operation latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		distributions: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_values",
				Help:    "Generic value distributions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quorum_state",
				Help: "Current values of engine state gauges.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case MetricFetchLatency:
		pm.fetchLatency.WithLabelValues(labelOr(labels, "source")).Observe(duration.Seconds())
	default:
		pm.latency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricFetchTotal:
		pm.fetchTotal.WithLabelValues(labelOr(labels, "source"), labelOr(labels, "status")).Add(value)
	case MetricScoringDegraded:
		pm.scoringDegraded.WithLabelValues(labelOr(labels, "stage")).Add(value)
	case source.MetricBackendRequests:
		pm.backendRequests.WithLabelValues(
			labelOr(labels, "source"), labelOr(labels, "provider"), labelOr(labels, "model"), labelOr(labels, "status"),
		).Add(value)
	case source.MetricBackendTokens:
		pm.backendTokens.WithLabelValues(
			labelOr(labels, "source"), labelOr(labels, "provider"), labelOr(labels, "model"), labelOr(labels, "token_type"),
		).Add(value)
	default:
		pm.operations.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricResponseScore:
		pm.responseScore.WithLabelValues(labelOr(labels, "source")).Observe(value)
	case source.MetricBackendLatency:
		pm.backendLatency.WithLabelValues(
			labelOr(labels, "source"), labelOr(labels, "provider"), labelOr(labels, "model"), labelOr(labels, "status"),
		).Observe(value)
	default:
		pm.distributions.WithLabelValues(metric).Observe(value)
	}
}

func labelOr(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}
