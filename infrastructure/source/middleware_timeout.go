package source

import (
	"context"
	"time"
)

// timeoutBackend bounds each Generate call with a deadline.
type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// TimeoutMiddleware applies a per-call deadline. A non-positive timeout
// disables the middleware.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Backend) Backend {
		if timeout <= 0 {
			return next
		}
		return &timeoutBackend{next: next, timeout: timeout}
	}
}

func (t *timeoutBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, prompt)
}

func (t *timeoutBackend) Provider() string { return t.next.Provider() }

func (t *timeoutBackend) Model() string { return t.next.Model() }
