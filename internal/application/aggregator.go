// Package application implements the aggregation pipeline: source selection,
// concurrent collection, scoring and persistence.
package application

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Aggregator answers a query end to end: it chooses sources, fans the query
// out, ranks whatever comes back and persists the ranking.
type Aggregator struct {
	catalog   ports.SourceCatalog
	collector *FanOutCollector
	ranker    domain.Ranker
	store     ports.ResultStore
	defaults  []string
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithResultStore persists every successful result. Without a store results
// are only returned.
func WithResultStore(store ports.ResultStore) AggregatorOption {
	return func(a *Aggregator) { a.store = store }
}

// WithDefaultSources sets the sources used when a request names none.
func WithDefaultSources(ids []string) AggregatorOption {
	return func(a *Aggregator) { a.defaults = slices.Clone(ids) }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator wires a catalog, collector and ranker together.
func NewAggregator(
	catalog ports.SourceCatalog,
	collector *FanOutCollector,
	ranker domain.Ranker,
	opts ...AggregatorOption,
) (*Aggregator, error) {
	if catalog == nil {
		return nil, errors.New("aggregator requires a source catalog")
	}
	if collector == nil {
		return nil, errors.New("aggregator requires a collector")
	}
	if ranker == nil {
		return nil, errors.New("aggregator requires a ranker")
	}

	a := &Aggregator{
		catalog:   catalog,
		collector: collector,
		ranker:    ranker,
		logger:    slog.Default(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// SourceIDs returns every source the aggregator can query.
func (a *Aggregator) SourceIDs() []string { return a.catalog.SourceIDs() }

// Process answers query using the requested sources.
//
// Unknown source IDs are dropped with a warning. If nothing requested is
// known, or nothing was requested, the default sources are used. Failing to
// collect any response is not an error: the returned result carries the
// reason in its Error field. Errors are returned only for invalid input.
func (a *Aggregator) Process(ctx context.Context, query string, sources []string) (domain.AggregationResult, error) {
	if strings.TrimSpace(query) == "" {
		return domain.AggregationResult{}, domain.ErrEmptyQuery
	}

	selected := a.SelectSources(sources)
	if len(selected) == 0 {
		return domain.AggregationResult{}, domain.ErrNoSources
	}

	a.logger.InfoContext(ctx, "aggregation: querying sources", "sources", selected)
	start := a.now()

	responses := a.collector.Collect(ctx, query, selected, a.catalog)
	result := a.ranker.Rank(ctx, query, responses)
	result.ID = a.newID()
	result.CreatedAt = a.now().UTC()

	if result.Failed() {
		a.logger.WarnContext(ctx, "aggregation: no usable responses",
			"id", result.ID, "sources", selected, "err", result.Error)
		return result, nil
	}

	a.logger.InfoContext(ctx, "aggregation: ranked responses",
		"id", result.ID,
		"responded", len(result.All),
		"requested", len(selected),
		"best", result.Best.SourceID,
		"score", result.Best.Score,
		"elapsed", a.now().Sub(start),
	)

	if a.store != nil {
		loc, err := a.store.Store(ctx, result)
		if err != nil {
			a.logger.WarnContext(ctx, "aggregation: failed to store result", "id", result.ID, "err", err)
		} else {
			result.Location = loc
		}
	}
	return result, nil
}

// SelectSources resolves requested source IDs against the catalog.
// IDs are matched case-insensitively and duplicates are dropped.
func (a *Aggregator) SelectSources(requested []string) []string {
	known := a.catalog.SourceIDs()

	if len(requested) == 0 {
		if defaults := intersect(a.defaults, known); len(defaults) > 0 {
			return defaults
		}
		return known
	}

	selected := make([]string, 0, len(requested))
	for _, id := range uniqueSourceIDs(lowerAll(requested)) {
		if slices.Contains(known, id) {
			selected = append(selected, id)
			continue
		}
		if suggestion, ok := suggestSource(id, known); ok {
			a.logger.Warn("aggregation: unknown source", "source", id, "did_you_mean", suggestion)
		} else {
			a.logger.Warn("aggregation: unknown source", "source", id)
		}
	}

	if len(selected) == 0 {
		a.logger.Warn("aggregation: none of the requested sources are available, using all", "requested", requested)
		return known
	}
	return selected
}

// suggestSource returns the known ID closest to name by edit distance, if it
// is close enough to be a plausible typo.
func suggestSource(name string, known []string) (string, bool) {
	best, bestDist := "", -1
	for _, id := range known {
		d := levenshtein.ComputeDistance(name, id)
		if bestDist < 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return "", false
	}
	return best, true
}

func intersect(ids, known []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if slices.Contains(known, id) {
			out = append(out, id)
		}
	}
	return out
}

func lowerAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strings.ToLower(id)
	}
	return out
}
