package application

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
	"github.com/ahrav/go-quorum/internal/text"
)

// Composite score weights. They sum to one, so the composite of three unit
// interval scores is itself in [0, 1].
const (
	RelevanceWeight = 0.5
	ConsensusWeight = 0.3
	LengthWeight    = 0.2
)

// Word-count band that receives a full length score.
const (
	MinIdealWords = 50
	MaxIdealWords = 500
)

// Scoring stages reported through ports.Observer when they degrade.
const (
	StageRelevance = "relevance"
	StageConsensus = "consensus"
)

var _ domain.Ranker = (*ScoringEngine)(nil)

// ScoringEngine ranks responses by a weighted blend of query relevance,
// agreement with the other responses, and length appropriateness.
// It holds no per-call state and is safe for concurrent use.
type ScoringEngine struct {
	tokenizer  text.Tokenizer
	vectorizer text.Vectorizer
	observer   ports.Observer
	tracer     trace.Tracer
}

// EngineOption configures a ScoringEngine.
type EngineOption func(*ScoringEngine)

// WithTokenizer replaces the word tokenizer used for relevance.
func WithTokenizer(t text.Tokenizer) EngineOption {
	return func(e *ScoringEngine) { e.tokenizer = t }
}

// WithVectorizer replaces the similarity model used for consensus.
func WithVectorizer(v text.Vectorizer) EngineOption {
	return func(e *ScoringEngine) { e.vectorizer = v }
}

// WithEngineObserver sets the observer notified of scores and degradations.
func WithEngineObserver(o ports.Observer) EngineOption {
	return func(e *ScoringEngine) {
		if o != nil {
			e.observer = o
		}
	}
}

// NewScoringEngine creates an engine with the default tokenizer and TF-IDF
// vectorizer unless options override them.
func NewScoringEngine(opts ...EngineOption) *ScoringEngine {
	e := &ScoringEngine{
		tokenizer:  text.NewWordTokenizer(),
		vectorizer: text.NewTFIDF(),
		observer:   ports.NopObserver{},
		tracer:     otel.Tracer("scoring-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank scores every response against query and returns them ordered by
// descending composite score. Ties keep their input order. When responses
// is empty the result carries domain.ErrNoResponses as its error.
//
// Tokenizer and vectorizer failures never fail the ranking: relevance falls
// back to whitespace tokens and consensus to a matrix of ones, and each
// fallback is reported to the observer.
func (e *ScoringEngine) Rank(
	ctx context.Context,
	query string,
	responses []domain.SourceResponse,
) domain.AggregationResult {
	ctx, span := e.tracer.Start(ctx, "ScoringEngine.Rank",
		trace.WithAttributes(attribute.Int("responses.count", len(responses))))
	defer span.End()

	if len(responses) == 0 {
		span.SetStatus(codes.Error, domain.ErrNoResponses.Error())
		return domain.NewFailedResult(query, domain.ErrNoResponses)
	}

	queryTerms := e.queryTerms(ctx, query)
	consensus := e.consensusScores(ctx, responses)

	scored := make([]domain.ScoredResponse, len(responses))
	for i, resp := range responses {
		breakdown := domain.Breakdown{
			Relevance: e.relevance(ctx, queryTerms, resp),
			Consensus: consensus[i],
			Length:    LengthScore(text.WordCount(resp.Text)),
		}
		scored[i] = domain.NewScoredResponse(resp, CompositeScore(breakdown), breakdown)
		e.observer.ResponseScored(ctx, scored[i])
	}

	slices.SortStableFunc(scored, func(a, b domain.ScoredResponse) int {
		return cmp.Compare(b.Score, a.Score)
	})

	result, err := domain.NewRankedResult(query, scored)
	if err != nil {
		span.RecordError(err)
		return domain.NewFailedResult(query, err)
	}
	span.SetAttributes(
		attribute.String("best.source", result.Best.SourceID),
		attribute.Float64("best.score", result.Best.Score),
	)
	return result
}

// queryTerms tokenizes the query once per ranking. On tokenizer failure
// every response is measured against the whitespace tokens of the query.
func (e *ScoringEngine) queryTerms(ctx context.Context, query string) map[string]struct{} {
	tokens, err := e.tokenizer.Tokenize(query)
	if err != nil {
		e.observer.ScoringDegraded(ctx, domain.NewScoringError(StageRelevance, "", err))
		return text.TokenSet(text.FieldTokens(query))
	}
	return text.ContentWords(tokens)
}

// relevance scores one response against the query terms. Only the side that
// failed to tokenize falls back to whitespace tokens.
func (e *ScoringEngine) relevance(
	ctx context.Context,
	queryTerms map[string]struct{},
	resp domain.SourceResponse,
) float64 {
	tokens, err := e.tokenizer.Tokenize(resp.Text)
	if err != nil {
		e.observer.ScoringDegraded(ctx, domain.NewScoringError(StageRelevance, resp.SourceID, err))
		return RelevanceScore(queryTerms, text.TokenSet(text.FieldTokens(resp.Text)))
	}
	return RelevanceScore(queryTerms, text.ContentWords(tokens))
}

// consensusScores returns each response's mean similarity to all responses,
// itself included.
func (e *ScoringEngine) consensusScores(ctx context.Context, responses []domain.SourceResponse) []float64 {
	docs := make([]string, len(responses))
	for i, r := range responses {
		docs[i] = r.Text
	}

	matrix, err := e.vectorizer.Similarity(docs)
	if err == nil {
		err = checkSquare(matrix, len(docs))
	}
	if err != nil {
		e.observer.ScoringDegraded(ctx, domain.NewScoringError(StageConsensus, "", err))
		matrix = text.UniformMatrix(len(docs))
	}
	return ConsensusScores(matrix)
}

func checkSquare(matrix [][]float64, n int) error {
	if len(matrix) != n {
		return fmt.Errorf("similarity matrix has %d rows, want %d", len(matrix), n)
	}
	for i, row := range matrix {
		if len(row) != n {
			return fmt.Errorf("similarity matrix row %d has %d columns, want %d", i, len(row), n)
		}
	}
	return nil
}

// RelevanceScore is the fraction of query terms that appear in the
// response. An empty query term set scores zero.
func RelevanceScore(queryTerms, responseTerms map[string]struct{}) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	overlap := 0
	for term := range queryTerms {
		if _, ok := responseTerms[term]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTerms))
}

// ConsensusScores returns the row means of a square similarity matrix,
// clamped to [0, 1].
func ConsensusScores(matrix [][]float64) []float64 {
	n := len(matrix)
	scores := make([]float64, n)
	for i, row := range matrix {
		var sum float64
		for _, v := range row {
			sum += v
		}
		scores[i] = clampUnit(sum / float64(n))
	}
	return scores
}

// LengthScore rewards word counts between MinIdealWords and MaxIdealWords.
// Shorter responses score proportionally less and longer ones decay as
// MaxIdealWords/words.
func LengthScore(words int) float64 {
	switch {
	case words < MinIdealWords:
		return float64(max(words, 0)) / MinIdealWords
	case words < MaxIdealWords:
		return 1
	default:
		return float64(MaxIdealWords) / float64(words)
	}
}

// CompositeScore blends the three components with the package weights.
func CompositeScore(b domain.Breakdown) float64 {
	return clampUnit(RelevanceWeight*b.Relevance + ConsensusWeight*b.Consensus + LengthWeight*b.Length)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
