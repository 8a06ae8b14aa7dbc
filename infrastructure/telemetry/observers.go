package telemetry

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

var (
	_ ports.Observer = (*LogObserver)(nil)
	_ ports.Observer = (*MetricsObserver)(nil)
	_ ports.Observer = (*TraceObserver)(nil)
	_ ports.Observer = Observers(nil)
)

// FetchStatus maps a fetch outcome to a short label value.
func FetchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ports.ErrFetchPanicked):
		return "panic"
	case errors.Is(err, ports.ErrNoResponse):
		return "no_response"
	case errors.Is(err, ports.ErrBlankResponse):
		return "blank"
	case errors.Is(err, ports.ErrUnknownSource):
		return "unknown_source"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// LogObserver writes events to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) FetchStarted(ctx context.Context, sourceID string) {
	o.logger.DebugContext(ctx, "collector: fetch started", "source", sourceID)
}

func (o *LogObserver) FetchFinished(ctx context.Context, outcome ports.FetchOutcome) {
	if outcome.Succeeded() {
		o.logger.InfoContext(ctx, "collector: fetch succeeded",
			"source", outcome.SourceID, "elapsed", outcome.Elapsed, "chars", outcome.Chars)
		return
	}
	o.logger.WarnContext(ctx, "collector: fetch failed",
		"source", outcome.SourceID,
		"elapsed", outcome.Elapsed,
		"status", FetchStatus(outcome.Err),
		"err", outcome.Err,
	)
}

func (o *LogObserver) ResponseScored(ctx context.Context, scored domain.ScoredResponse) {
	o.logger.DebugContext(ctx, "scoring: response scored",
		"source", scored.SourceID,
		"score", scored.Score,
		"relevance", scored.Breakdown.Relevance,
		"consensus", scored.Breakdown.Consensus,
		"length", scored.Breakdown.Length,
	)
}

func (o *LogObserver) ScoringDegraded(ctx context.Context, err *domain.ScoringError) {
	o.logger.WarnContext(ctx, "scoring: stage degraded, using fallback",
		"stage", err.Stage, "source", err.SourceID, "err", err.Err)
}

// MetricsObserver records events through a ports.MetricsCollector.
type MetricsObserver struct {
	metrics ports.MetricsCollector
}

// NewMetricsObserver creates a MetricsObserver.
func NewMetricsObserver(metrics ports.MetricsCollector) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

func (o *MetricsObserver) FetchStarted(context.Context, string) {}

func (o *MetricsObserver) FetchFinished(_ context.Context, outcome ports.FetchOutcome) {
	o.metrics.RecordCounter(MetricFetchTotal, 1, map[string]string{
		"source": outcome.SourceID,
		"status": FetchStatus(outcome.Err),
	})
	o.metrics.RecordLatency(MetricFetchLatency, outcome.Elapsed, map[string]string{"source": outcome.SourceID})
}

func (o *MetricsObserver) ResponseScored(_ context.Context, scored domain.ScoredResponse) {
	o.metrics.RecordHistogram(MetricResponseScore, scored.Score, map[string]string{"source": scored.SourceID})
}

func (o *MetricsObserver) ScoringDegraded(_ context.Context, err *domain.ScoringError) {
	o.metrics.RecordCounter(MetricScoringDegraded, 1, map[string]string{"stage": err.Stage})
}

// TraceObserver adds events to the span carried by the event context.
// Events on a context without a recording span are dropped.
type TraceObserver struct{}

// NewTraceObserver creates a TraceObserver.
func NewTraceObserver() *TraceObserver { return &TraceObserver{} }

func (o *TraceObserver) FetchStarted(ctx context.Context, sourceID string) {
	trace.SpanFromContext(ctx).AddEvent("fetch.started",
		trace.WithAttributes(attribute.String("source", sourceID)))
}

func (o *TraceObserver) FetchFinished(ctx context.Context, outcome ports.FetchOutcome) {
	attrs := []attribute.KeyValue{
		attribute.String("source", outcome.SourceID),
		attribute.String("status", FetchStatus(outcome.Err)),
		attribute.Int64("elapsed_ms", outcome.Elapsed.Milliseconds()),
		attribute.Int("chars", outcome.Chars),
	}
	if outcome.Err != nil {
		attrs = append(attrs, attribute.String("error", outcome.Err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("fetch.finished", trace.WithAttributes(attrs...))
}

func (o *TraceObserver) ResponseScored(ctx context.Context, scored domain.ScoredResponse) {
	trace.SpanFromContext(ctx).AddEvent("response.scored", trace.WithAttributes(
		attribute.String("source", scored.SourceID),
		attribute.Float64("score", scored.Score),
	))
}

func (o *TraceObserver) ScoringDegraded(ctx context.Context, err *domain.ScoringError) {
	trace.SpanFromContext(ctx).AddEvent("scoring.degraded", trace.WithAttributes(
		attribute.String("stage", err.Stage),
		attribute.String("error", err.Error()),
	))
}

// Observers fans every event out to each observer in order.
type Observers []ports.Observer

func (obs Observers) FetchStarted(ctx context.Context, sourceID string) {
	for _, o := range obs {
		o.FetchStarted(ctx, sourceID)
	}
}

func (obs Observers) FetchFinished(ctx context.Context, outcome ports.FetchOutcome) {
	for _, o := range obs {
		o.FetchFinished(ctx, outcome)
	}
}

func (obs Observers) ResponseScored(ctx context.Context, scored domain.ScoredResponse) {
	for _, o := range obs {
		o.ResponseScored(ctx, scored)
	}
}

func (obs Observers) ScoringDegraded(ctx context.Context, err *domain.ScoringError) {
	for _, o := range obs {
		o.ScoringDegraded(ctx, err)
	}
}
