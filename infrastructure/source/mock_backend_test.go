package source

import (
	"context"
	"sync"
	"time"
)

// mockBackend is a configurable Backend for middleware and source tests.
type mockBackend struct {
	mu sync.Mutex

	Response      string
	Usage         Usage
	Err           error
	ResponseDelay time.Duration

	// FailUntilAttempt makes the first N calls return Err.
	FailUntilAttempt int

	calls    int
	prompts  []string
	contexts []context.Context
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		Response: "test response",
		Usage:    Usage{InputTokens: 10, OutputTokens: 20},
	}
}

func (m *mockBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	m.mu.Lock()
	m.calls++
	attempt := m.calls
	m.prompts = append(m.prompts, prompt)
	m.contexts = append(m.contexts, ctx)
	delay, err := m.ResponseDelay, m.Err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", Usage{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil && (m.FailUntilAttempt == 0 || attempt <= m.FailUntilAttempt) {
		return "", Usage{}, err
	}
	return m.Response, m.Usage, nil
}

func (m *mockBackend) Provider() string { return "mock" }

func (m *mockBackend) Model() string { return "mock-model" }

func (m *mockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockBackend) LastContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.contexts) == 0 {
		return nil
	}
	return m.contexts[len(m.contexts)-1]
}
