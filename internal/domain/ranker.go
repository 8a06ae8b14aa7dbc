package domain

import "context"

// Ranker scores a set of collected responses against the query that produced
// them and orders them best first. Implementations never fail outright: when
// nothing can be ranked they return a result whose Error is set.
type Ranker interface {
	Rank(ctx context.Context, query string, responses []SourceResponse) AggregationResult
}
