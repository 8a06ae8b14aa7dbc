package source

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the backend while the circuit
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name.
func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker opens after maxFailures consecutive failures and lets a
// single trial call through once cooldown has elapsed.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        CircuitState
	failures     int
	maxFailures  int
	cooldown     time.Duration
	openedAt     time.Time
	trialRunning bool
	now          func() time.Time
}

// NewCircuitBreaker creates a closed CircuitBreaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: max(maxFailures, 1),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// allow reports whether a call may proceed and moves an expired open
// circuit to half-open.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.trialRunning = true
		return true
	case StateHalfOpen:
		if cb.trialRunning {
			return false
		}
		cb.trialRunning = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trialRunning = false
	if err == nil {
		cb.failures = 0
		cb.state = StateClosed
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

// release ends a call without recording an outcome.
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trialRunning = false
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// circuitBreakerBackend guards a Backend with a CircuitBreaker.
type circuitBreakerBackend struct {
	next Backend
	cb   *CircuitBreaker
}

// CircuitBreakerMiddleware wraps a Backend with a fresh CircuitBreaker.
// Cancellation by the caller does not count as a failure.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next Backend) Backend {
		return &circuitBreakerBackend{next: next, cb: cb}
	}
}

func (c *circuitBreakerBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	if !c.cb.allow() {
		return "", Usage{}, ErrCircuitOpen
	}

	text, usage, err := c.next.Generate(ctx, prompt)
	if errors.Is(err, context.Canceled) {
		c.cb.release()
		return text, usage, err
	}
	c.cb.record(err)
	return text, usage, err
}

func (c *circuitBreakerBackend) Provider() string { return c.next.Provider() }

func (c *circuitBreakerBackend) Model() string { return c.next.Model() }
