package source

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-quorum/internal/ports"
)

// Metric names emitted by MetricsMiddleware.
const (
	MetricBackendRequests = "backend_requests_total"
	MetricBackendLatency  = "backend_latency_seconds"
	MetricBackendTokens   = "backend_tokens_total"
)

// metricsBackend records request counts, latency and token usage.
type metricsBackend struct {
	next      Backend
	collector ports.MetricsCollector
	sourceID  string
}

// MetricsMiddleware reports every call to collector, labelled with the
// source it serves. A nil collector disables the middleware.
func MetricsMiddleware(collector ports.MetricsCollector, sourceID string) Middleware {
	return func(next Backend) Backend {
		if collector == nil {
			return next
		}
		return &metricsBackend{next: next, collector: collector, sourceID: sourceID}
	}
}

func (m *metricsBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	start := time.Now()
	text, usage, err := m.next.Generate(ctx, prompt)

	labels := map[string]string{
		"source":   m.sourceID,
		"provider": m.next.Provider(),
		"model":    m.next.Model(),
		"status":   requestStatus(err),
	}
	m.collector.RecordHistogram(MetricBackendLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricBackendRequests, 1, labels)

	if err == nil {
		m.collector.RecordCounter(MetricBackendTokens, float64(usage.InputTokens), map[string]string{
			"source": m.sourceID, "provider": labels["provider"], "model": labels["model"], "token_type": "input",
		})
		m.collector.RecordCounter(MetricBackendTokens, float64(usage.OutputTokens), map[string]string{
			"source": m.sourceID, "provider": labels["provider"], "model": labels["model"], "token_type": "output",
		})
	}
	return text, usage, err
}

func requestStatus(err error) string {
	var perr *ProviderError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &perr):
		return perr.Type.String()
	default:
		return "error"
	}
}

func (m *metricsBackend) Provider() string { return m.next.Provider() }

func (m *metricsBackend) Model() string { return m.next.Model() }
