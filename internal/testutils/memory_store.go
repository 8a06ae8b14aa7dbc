package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

var _ ports.ResultStore = (*MemoryStore)(nil)

// MemoryStore keeps results in memory. Setting Err makes every Store fail.
type MemoryStore struct {
	mu      sync.Mutex
	results []domain.AggregationResult
	Err     error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Store implements ports.ResultStore. The location is "memory://<index>".
func (s *MemoryStore) Store(_ context.Context, result domain.AggregationResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", ports.NewStoreError("memory", "store", s.Err)
	}
	s.results = append(s.results, result)
	return fmt.Sprintf("memory://%d", len(s.results)-1), nil
}

// Results returns a copy of every stored result.
func (s *MemoryStore) Results() []domain.AggregationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AggregationResult(nil), s.results...)
}
