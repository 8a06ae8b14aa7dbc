package source

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func TestNewGoogleBackend(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantModel string
		wantErr   error
	}{
		{
			name:      "default model",
			cfg:       Config{Provider: "google", APIKey: "test-key"},
			wantModel: GoogleDefaultModel,
		},
		{
			name:      "custom model",
			cfg:       Config{Provider: "google", APIKey: "test-key", Model: "gemini-1.5-pro"},
			wantModel: "gemini-1.5-pro",
		},
		{
			name:    "missing key",
			cfg:     Config{Provider: "google"},
			wantErr: ErrEmptyAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "google", b.Provider())
			assert.Equal(t, tt.wantModel, b.Model())
		})
	}
}

func TestNewGoogleBackend_InvalidBaseURL(t *testing.T) {
	_, err := NewBackend(Config{Provider: "google", APIKey: "k", BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestGoogleBackend_HandleError(t *testing.T) {
	b := &googleBackend{classifier: &ErrorClassifier{Provider: "google"}}

	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{name: "deadline", err: context.DeadlineExceeded, wantType: ErrorTypeTimeout},
		{name: "genai auth", err: genai.APIError{Code: http.StatusUnauthorized, Message: "API key not valid"}, wantType: ErrorTypeAuthentication},
		{name: "genai rate limit", err: genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"}, wantType: ErrorTypeRateLimit},
		{name: "genai safety", err: genai.APIError{Code: http.StatusBadRequest, Message: "Response blocked by safety settings"}, wantType: ErrorTypeContentPolicy},
		{name: "googleapi server", err: &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "unavailable"}, wantType: ErrorTypeServerError},
		{name: "googleapi safety reason", err: &googleapi.Error{Code: http.StatusBadRequest, Errors: []googleapi.ErrorItem{{Reason: "SAFETY"}}}, wantType: ErrorTypeContentPolicy},
		{name: "transport", err: errors.New("connection reset"), wantType: ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var perr *ProviderError
			require.ErrorAs(t, b.handleError(tt.err), &perr)
			assert.Equal(t, tt.wantType, perr.Type)
			assert.Equal(t, "google", perr.Provider)
		})
	}
}
