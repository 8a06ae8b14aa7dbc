package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

var _ ports.Source = (*LLMSource)(nil)

// LLMSource answers queries by sending them verbatim to a Backend.
type LLMSource struct {
	id      string
	backend Backend
	now     func() time.Time
}

// NewLLMSource creates a source named id backed by backend.
func NewLLMSource(id string, backend Backend) (*LLMSource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("source id cannot be empty")
	}
	if backend == nil {
		return nil, errors.New("source backend cannot be nil")
	}
	return &LLMSource{id: id, backend: backend, now: time.Now}, nil
}

// ID implements ports.Source.
func (s *LLMSource) ID() string { return s.id }

// Backend returns the wrapped backend.
func (s *LLMSource) Backend() Backend { return s.backend }

// Fetch implements ports.Source. A blank completion yields (nil, nil).
func (s *LLMSource) Fetch(ctx context.Context, query string) (*domain.SourceResponse, error) {
	text, _, err := s.backend.Generate(ctx, query)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return &domain.SourceResponse{
		SourceID:  s.id,
		Text:      text,
		Timestamp: s.now().UTC(),
	}, nil
}
