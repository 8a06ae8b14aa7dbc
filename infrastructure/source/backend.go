// Package source adapts LLM provider APIs into response sources.
//
// A Backend performs one completion against a provider. Backends are built by
// provider factories registered at init time and wrapped in Middleware for
// cross-cutting behavior:
//
//	backend, err := source.NewBackend(source.Config{
//	    Provider: "anthropic",
//	    APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
//	}, source.TracingMiddleware(), source.TimeoutMiddleware(30*time.Second))
//
// An LLMSource turns a Backend into a ports.Source, and a Registry exposes a
// set of sources as a ports.SourceCatalog.
package source

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
	"unicode/utf8"
)

// Usage reports the tokens consumed by one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Backend performs a single completion against an LLM provider.
// Implementations must be safe for concurrent use.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, Usage, error)

	// Provider names the provider family, such as "openai".
	Provider() string

	// Model returns the model used for completions.
	Model() string
}

// Config holds the settings a provider factory needs to build a Backend.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature *float64
	System      string
}

// Middleware wraps a Backend to add behavior around Generate.
type Middleware func(Backend) Backend

// BackendFactory builds a Backend for one provider.
type BackendFactory func(Config) (Backend, error)

var (
	factoriesMu      sync.RWMutex
	backendFactories = make(map[string]BackendFactory)
)

// RegisterBackendFactory makes a provider available to NewBackend.
// Registering the same provider twice replaces the earlier factory.
func RegisterBackendFactory(provider string, factory BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	backendFactories[provider] = factory
}

// IsRegisteredProvider reports whether a factory exists for provider.
func IsRegisteredProvider(provider string) bool {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	_, ok := backendFactories[provider]
	return ok
}

// RegisteredProviders returns the registered provider names, sorted.
func RegisteredProviders() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(backendFactories))
	for name := range backendFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewBackend builds a Backend for cfg.Provider and wraps it in middleware.
// The first middleware is the outermost.
func NewBackend(cfg Config, middleware ...Middleware) (Backend, error) {
	factoriesMu.RLock()
	factory, ok := backendFactories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	backend, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	return Chain(backend, middleware...), nil
}

// Chain wraps backend so that middleware[0] runs first.
func Chain(backend Backend, middleware ...Middleware) Backend {
	for i := len(middleware) - 1; i >= 0; i-- {
		backend = middleware[i](backend)
	}
	return backend
}

// EstimateTokens approximates a token count at four characters per token.
// It is used when a provider omits usage data.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

func tokensOr(reported int, text string) int {
	if reported > 0 {
		return reported
	}
	return EstimateTokens(text)
}
