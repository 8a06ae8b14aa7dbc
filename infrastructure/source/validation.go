package source

import (
	"fmt"
	"net/url"
	"time"
)

// Bounds applied to provider settings.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 10 * time.Minute
)

// ValidateBaseURL checks that baseURL is an absolute http(s) URL and returns
// its normalized form. An empty string is accepted and returned unchanged.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsed.String(), nil
}

// ClampTimeout bounds a positive timeout to [MinTimeout, MaxTimeout].
// Non-positive values return zero, meaning no timeout.
func ClampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	return min(max(timeout, MinTimeout), MaxTimeout)
}

// validTemperature returns t when it is in range.
func validTemperature(t *float64) (float64, bool) {
	if t == nil || *t < MinTemperature || *t > MaxTemperature {
		return 0, false
	}
	return *t, true
}
