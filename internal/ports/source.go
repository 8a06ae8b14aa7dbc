package ports

import (
	"context"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Fetcher obtains the response of one source to a query.
// Returning (nil, nil) means the source had nothing to say; the collector
// treats that exactly like an error and omits the source.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID, query string) (*domain.SourceResponse, error)
}

// FetcherFunc adapts an ordinary function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, sourceID, query string) (*domain.SourceResponse, error)

// Fetch calls f(ctx, sourceID, query).
func (f FetcherFunc) Fetch(ctx context.Context, sourceID, query string) (*domain.SourceResponse, error) {
	return f(ctx, sourceID, query)
}

// Source is a single named producer of responses, typically one LLM backend.
type Source interface {
	// ID returns the stable identifier used to request this source.
	ID() string

	// Fetch asks the source to answer query.
	Fetch(ctx context.Context, query string) (*domain.SourceResponse, error)
}

// SourceCatalog is a Fetcher that also knows which sources exist.
type SourceCatalog interface {
	Fetcher

	// SourceIDs returns every known source ID in declaration order.
	SourceIDs() []string
}
