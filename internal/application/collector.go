package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// FanOutCollector queries many sources concurrently and gathers whatever
// usable responses come back. A failing source never affects its siblings
// and never fails the collection as a whole.
type FanOutCollector struct {
	config   CollectorConfig
	observer ports.Observer
	tracer   trace.Tracer
	now      func() time.Time
}

// NewFanOutCollector creates a collector. A nil observer discards events.
func NewFanOutCollector(config CollectorConfig, observer ports.Observer) (*FanOutCollector, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid collector config: %w", err)
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &FanOutCollector{
		config:   config,
		observer: observer,
		tracer:   otel.Tracer("fanout-collector"),
		now:      time.Now,
	}, nil
}

// Collect fetches query from every distinct source ID and returns the usable
// responses in the order the IDs were first listed. A fetch that errors,
// panics, returns nothing, or returns only whitespace is omitted. Collect
// returns only after every fetch has finished.
func (c *FanOutCollector) Collect(
	ctx context.Context,
	query string,
	sources []string,
	fetcher ports.Fetcher,
) []domain.SourceResponse {
	ids := uniqueSourceIDs(sources)
	if len(ids) == 0 {
		return []domain.SourceResponse{}
	}

	ctx, span := c.tracer.Start(ctx, "FanOutCollector.Collect",
		trace.WithAttributes(
			attribute.Int("sources.requested", len(ids)),
			attribute.Int("collector.max_concurrency", c.config.MaxConcurrency),
		))
	defer span.End()

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	// Each goroutine owns one slot, so no locking is needed and the output
	// order matches the input order regardless of completion order.
	slots := make([]*domain.SourceResponse, len(ids))

	// A plain Group, not WithContext: one failure must not cancel siblings.
	var g errgroup.Group
	if c.config.MaxConcurrency > 0 {
		g.SetLimit(c.config.MaxConcurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			slots[i] = c.fetchOne(ctx, id, query, fetcher)
			return nil
		})
	}
	_ = g.Wait()

	responses := make([]domain.SourceResponse, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			responses = append(responses, *r)
		}
	}
	span.SetAttributes(attribute.Int("sources.responded", len(responses)))
	return responses
}

// fetchOne runs a single fetch, converting every failure mode, including a
// panic, into a nil response.
func (c *FanOutCollector) fetchOne(
	ctx context.Context,
	sourceID, query string,
	fetcher ports.Fetcher,
) (resp *domain.SourceResponse) {
	start := c.now()
	c.observer.FetchStarted(ctx, sourceID)

	var err error
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = ports.NewSourceError(sourceID, "fetch", fmt.Errorf("%w: %v", ports.ErrFetchPanicked, r))
		}
		outcome := ports.FetchOutcome{SourceID: sourceID, Elapsed: c.now().Sub(start), Err: err}
		if resp != nil {
			outcome.Chars = len(resp.Text)
		}
		c.observer.FetchFinished(ctx, outcome)
	}()

	got, fetchErr := fetcher.Fetch(ctx, sourceID, query)
	switch {
	case fetchErr != nil:
		err = ports.NewSourceError(sourceID, "fetch", fetchErr)
		return nil
	case got == nil:
		err = ports.NewSourceError(sourceID, "fetch", ports.ErrNoResponse)
		return nil
	case strings.TrimSpace(got.Text) == "":
		err = ports.NewSourceError(sourceID, "fetch", ports.ErrBlankResponse)
		return nil
	}

	out := *got
	out.SourceID = sourceID
	if out.Timestamp.IsZero() {
		out.Timestamp = c.now()
	}
	return &out
}

// uniqueSourceIDs drops blank and repeated IDs, keeping first occurrences.
func uniqueSourceIDs(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	ids := make([]string, 0, len(sources))
	for _, id := range sources {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
