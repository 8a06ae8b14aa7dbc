// Package domain contains the core value types of the aggregation engine.
// It has no dependencies outside the standard library.
package domain

import (
	"math"
	"time"
)

// SourceResponse is a single piece of text produced by one source for a query.
// Responses are created by fetchers and are immutable once collected.
type SourceResponse struct {
	// SourceID identifies the source that produced the text.
	SourceID string `json:"source"`

	// Text is the raw response content.
	Text string `json:"content"`

	// Timestamp records when the response was obtained.
	Timestamp time.Time `json:"timestamp"`
}

// Breakdown holds the three component scores behind a composite score.
// Every component lies in [0, 1].
type Breakdown struct {
	Relevance float64 `json:"relevance"`
	Consensus float64 `json:"consensus"`
	Length    float64 `json:"length"`
}

// ScoredResponse is a SourceResponse annotated with its composite score.
type ScoredResponse struct {
	SourceResponse

	// Score is the weighted composite in [0, 1].
	Score float64 `json:"score"`

	// Breakdown exposes the components that produced Score.
	Breakdown Breakdown `json:"breakdown"`
}

// NewScoredResponse attaches a composite score and its breakdown to resp.
// Scores outside [0, 1] are clamped.
func NewScoredResponse(resp SourceResponse, score float64, breakdown Breakdown) ScoredResponse {
	return ScoredResponse{
		SourceResponse: resp,
		Score:          clampUnit(score),
		Breakdown:      breakdown,
	}
}

// AggregationResult is the outcome of ranking the responses to one query.
// Exactly one of Best or Error is meaningful: a successful result has a
// non-nil Best that equals All[0], a failed one has an empty All and a
// non-empty Error.
type AggregationResult struct {
	// ID uniquely identifies this result, typically a UUID.
	ID string `json:"id,omitempty"`

	Query string `json:"query"`

	// Best is the top-ranked response.
	Best *ScoredResponse `json:"best,omitempty"`

	// All holds every scored response ordered by descending score.
	All []ScoredResponse `json:"all,omitempty"`

	// Error describes why no ranking could be produced.
	Error string `json:"error,omitempty"`

	// Location is where the result was persisted, if it was.
	Location string `json:"location,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
}

// NewRankedResult builds a successful result from responses that are already
// sorted by descending score. It returns ErrNoResponses when ranked is empty.
func NewRankedResult(query string, ranked []ScoredResponse) (AggregationResult, error) {
	if len(ranked) == 0 {
		return AggregationResult{}, ErrNoResponses
	}
	all := make([]ScoredResponse, len(ranked))
	copy(all, ranked)
	best := all[0]
	return AggregationResult{Query: query, Best: &best, All: all}, nil
}

// NewFailedResult builds a result that carries only an error message.
func NewFailedResult(query string, err error) AggregationResult {
	return AggregationResult{Query: query, Error: err.Error()}
}

// Failed reports whether the result carries an error instead of a ranking.
func (r AggregationResult) Failed() bool { return r.Error != "" }

// Sources returns the source IDs of all ranked responses in rank order.
func (r AggregationResult) Sources() []string {
	ids := make([]string, len(r.All))
	for i, s := range r.All {
		ids[i] = s.SourceID
	}
	return ids
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
