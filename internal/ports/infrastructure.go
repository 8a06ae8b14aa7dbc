// Package ports defines the interfaces between the aggregation core and the
// infrastructure that feeds and observes it.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
)

// MetricsCollector records operational metrics.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordLatency records how long an operation took.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter adds value to a monotonically increasing counter.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets a gauge to value.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram observes value in a distribution.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ResultStore persists aggregation results.
type ResultStore interface {
	// Store saves result and returns a locator for it, such as a file path.
	Store(ctx context.Context, result domain.AggregationResult) (string, error)
}

// FetchOutcome summarizes one completed fetch.
type FetchOutcome struct {
	SourceID string
	Elapsed  time.Duration

	// Chars is the length of the response text in bytes.
	Chars int

	// Err is nil when the fetch produced a usable response.
	Err error
}

// Succeeded reports whether the fetch produced a usable response.
func (o FetchOutcome) Succeeded() bool { return o.Err == nil }

// Observer receives lifecycle events from the collector and the scoring
// engine. Calls may arrive concurrently from several goroutines, and
// implementations must not block.
type Observer interface {
	FetchStarted(ctx context.Context, sourceID string)
	FetchFinished(ctx context.Context, outcome FetchOutcome)
	ResponseScored(ctx context.Context, scored domain.ScoredResponse)
	ScoringDegraded(ctx context.Context, err *domain.ScoringError)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) FetchStarted(context.Context, string)                  {}
func (NopObserver) FetchFinished(context.Context, FetchOutcome)           {}
func (NopObserver) ResponseScored(context.Context, domain.ScoredResponse) {}
func (NopObserver) ScoringDegraded(context.Context, *domain.ScoringError) {}
