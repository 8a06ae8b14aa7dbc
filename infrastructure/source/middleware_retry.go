package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// retryBackend retries transient failures with jittered exponential backoff.
type retryBackend struct {
	next       Backend
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware retries a failed call up to maxRetries times. Errors that
// are classified as permanent, cancellation and an open circuit are not
// retried.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next Backend) Backend {
		return &retryBackend{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

func (r *retryBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		text, usage, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) || attempt == r.maxRetries {
			break
		}

		timer := time.NewTimer(r.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", Usage{}, ctx.Err()
		case <-timer.C:
		}
	}

	if r.maxRetries == 0 {
		return "", Usage{}, lastErr
	}
	return "", Usage{}, fmt.Errorf("request failed after retries: %w", lastErr)
}

// delay returns the backoff before retry attempt+1: base*2^attempt with
// jitter in [-25%, +25%], capped at maxDelay.
func (r *retryBackend) delay(attempt int) time.Duration {
	if r.baseDelay <= 0 {
		return 0
	}
	attempt = min(max(attempt, 0), 30)
	d := r.baseDelay << attempt
	if d <= 0 || d > r.maxDelay {
		d = r.maxDelay
	}
	jitter := time.Duration(rand.Float64()*float64(d)/2) - d/4
	return min(d+jitter, r.maxDelay)
}

func (r *retryBackend) Provider() string { return r.next.Provider() }

func (r *retryBackend) Model() string { return r.next.Model() }
