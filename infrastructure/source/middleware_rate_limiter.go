package source

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedBackend waits for a token before each call.
type rateLimitedBackend struct {
	next    Backend
	limiter *rate.Limiter
}

// RateLimitMiddleware throttles calls to limit per second with the given
// burst. The limiter is shared by every Backend the middleware wraps.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next Backend) Backend {
		return &rateLimitedBackend{next: next, limiter: limiter}
	}
}

func (r *rateLimitedBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", Usage{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}

func (r *rateLimitedBackend) Provider() string { return r.next.Provider() }

func (r *rateLimitedBackend) Model() string { return r.next.Model() }
