package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredProviders(t *testing.T) {
	providers := RegisteredProviders()

	for _, p := range []string{"openai", "anthropic", "google", "deepseek", "grok", "mistral"} {
		assert.Contains(t, providers, p)
		assert.True(t, IsRegisteredProvider(p))
	}
	assert.False(t, IsRegisteredProvider("bard"))
	assert.IsIncreasing(t, providers)
}

func TestNewBackend_Errors(t *testing.T) {
	_, err := NewBackend(Config{Provider: "bard", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = NewBackend(Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = NewBackend(Config{Provider: "openai", APIKey: "k", BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestNewBackend_PresetDefaults(t *testing.T) {
	tests := []struct {
		provider string
		model    string
	}{
		{"openai", OpenAIDefaultModel},
		{"deepseek", "deepseek-chat"},
		{"grok", "grok-2-latest"},
		{"mistral", "mistral-large-latest"},
		{"anthropic", AnthropicDefaultModel},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			b, err := NewBackend(Config{Provider: tt.provider, APIKey: "test-key"})
			require.NoError(t, err)
			assert.Equal(t, tt.provider, b.Provider())
			assert.Equal(t, tt.model, b.Model())
		})
	}
}

// orderMiddleware appends its name to a shared log before delegating.
func orderMiddleware(name string, log *[]string) Middleware {
	return func(next Backend) Backend {
		return backendFunc{next: next, fn: func(ctx context.Context, prompt string) (string, Usage, error) {
			*log = append(*log, name)
			return next.Generate(ctx, prompt)
		}}
	}
}

type backendFunc struct {
	next Backend
	fn   func(ctx context.Context, prompt string) (string, Usage, error)
}

func (b backendFunc) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	return b.fn(ctx, prompt)
}
func (b backendFunc) Provider() string { return b.next.Provider() }
func (b backendFunc) Model() string    { return b.next.Model() }

func TestChain_FirstMiddlewareIsOutermost(t *testing.T) {
	var log []string
	b := Chain(newMockBackend(), orderMiddleware("outer", &log), orderMiddleware("inner", &log))

	_, _, err := b.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, log)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 1, EstimateTokens("日本語"))
}
