// Package testutils provides fakes for the aggregation ports and canned
// response content for tests.
package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

var _ ports.SourceCatalog = (*MockFetcher)(nil)

// FetchBehavior scripts how MockFetcher answers one source.
type FetchBehavior struct {
	// Text is returned as the response content.
	Text string
	// Err is returned instead of a response when set.
	Err error
	// Panic, when non-nil, is passed to panic inside Fetch.
	Panic any
	// Delay blocks the fetch until it elapses or the context is done.
	Delay time.Duration
	// Nil returns (nil, nil).
	Nil bool
}

// MockFetcher is a scripted ports.SourceCatalog. Sources are listed in the
// order they were first scripted. It is safe for concurrent use and records
// calls and peak concurrency.
type MockFetcher struct {
	mu          sync.Mutex
	behaviors   map[string]FetchBehavior
	order       []string
	calls       map[string]int
	queries     []string
	inFlight    int
	maxInFlight int
}

// NewMockFetcher creates a MockFetcher with no sources.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		behaviors: make(map[string]FetchBehavior),
		calls:     make(map[string]int),
	}
}

// On scripts the behavior for sourceID.
func (m *MockFetcher) On(sourceID string, b FetchBehavior) *MockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.behaviors[sourceID]; !ok {
		m.order = append(m.order, sourceID)
	}
	m.behaviors[sourceID] = b
	return m
}

// Respond makes sourceID answer with text.
func (m *MockFetcher) Respond(sourceID, text string) *MockFetcher {
	return m.On(sourceID, FetchBehavior{Text: text})
}

// Fail makes sourceID return err.
func (m *MockFetcher) Fail(sourceID string, err error) *MockFetcher {
	return m.On(sourceID, FetchBehavior{Err: err})
}

// Fetch implements ports.Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, sourceID, query string) (*domain.SourceResponse, error) {
	m.mu.Lock()
	b, ok := m.behaviors[sourceID]
	m.calls[sourceID]++
	m.queries = append(m.queries, query)
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownSource, sourceID)
	}
	if b.Delay > 0 {
		timer := time.NewTimer(b.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if b.Panic != nil {
		panic(b.Panic)
	}
	if b.Err != nil {
		return nil, b.Err
	}
	if b.Nil {
		return nil, nil
	}
	return &domain.SourceResponse{SourceID: sourceID, Text: b.Text, Timestamp: time.Now().UTC()}, nil
}

// SourceIDs implements ports.SourceCatalog.
func (m *MockFetcher) SourceIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Calls returns how many times sourceID was fetched.
func (m *MockFetcher) Calls(sourceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[sourceID]
}

// TotalCalls returns the number of fetches across all sources.
func (m *MockFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// MaxInFlight returns the peak number of concurrent fetches observed.
func (m *MockFetcher) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}
