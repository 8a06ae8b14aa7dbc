package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

var _ ports.SourceCatalog = (*Registry)(nil)

// Registry holds named sources and dispatches fetches to them.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]ports.Source
	order   []string
}

// NewRegistry creates a registry holding sources in the given order.
func NewRegistry(sources ...ports.Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]ports.Source, len(sources))}
	for _, s := range sources {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds src. IDs must be unique.
func (r *Registry) Register(src ports.Source) error {
	if src == nil {
		return fmt.Errorf("cannot register nil source")
	}
	id := src.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[id]; exists {
		return fmt.Errorf("source %q already registered", id)
	}
	r.sources[id] = src
	r.order = append(r.order, id)
	return nil
}

// Lookup returns the source registered under id.
func (r *Registry) Lookup(id string) (ports.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	return src, ok
}

// SourceIDs implements ports.SourceCatalog.
func (r *Registry) SourceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Fetch implements ports.Fetcher by dispatching to the named source.
func (r *Registry) Fetch(ctx context.Context, sourceID, query string) (*domain.SourceResponse, error) {
	src, ok := r.Lookup(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnknownSource, sourceID)
	}
	return src.Fetch(ctx, query)
}
