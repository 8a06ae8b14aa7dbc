package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	mock := newMockBackend()
	wrapped := TimeoutMiddleware(time.Second)(mock)

	_, _, err := wrapped.Generate(context.Background(), "p")
	require.NoError(t, err)

	_, hasDeadline := mock.LastContext().Deadline()
	assert.True(t, hasDeadline, "backend should receive a context with a deadline")
}

func TestTimeoutMiddleware_Expires(t *testing.T) {
	mock := newMockBackend()
	mock.ResponseDelay = time.Second
	wrapped := TimeoutMiddleware(20 * time.Millisecond)(mock)

	start := time.Now()
	_, _, err := wrapped.Generate(context.Background(), "p")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTimeoutMiddleware_DisabledForNonPositive(t *testing.T) {
	mock := newMockBackend()
	wrapped := TimeoutMiddleware(0)(mock)

	assert.Same(t, mock, wrapped)
}

func TestRateLimitMiddleware_Throttles(t *testing.T) {
	mock := newMockBackend()
	wrapped := RateLimitMiddleware(rate.Every(50*time.Millisecond), 1)(mock)

	start := time.Now()
	for range 3 {
		_, _, err := wrapped.Generate(context.Background(), "p")
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRateLimitMiddleware_ContextCanceled(t *testing.T) {
	mock := newMockBackend()
	wrapped := RateLimitMiddleware(rate.Every(time.Hour), 1)(mock)

	_, _, err := wrapped.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = wrapped.Generate(ctx, "second")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetryMiddleware_SucceedsAfterTransientFailures(t *testing.T) {
	mock := newMockBackend()
	mock.Err = NewProviderError("mock", ErrorTypeServerError, 503, "", nil)
	mock.FailUntilAttempt = 2
	wrapped := RetryMiddleware(3, time.Millisecond, 5*time.Millisecond)(mock)

	text, _, err := wrapped.Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, "test response", text)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRetryMiddleware_GivesUp(t *testing.T) {
	mock := newMockBackend()
	mock.Err = errors.New("flaky")
	wrapped := RetryMiddleware(2, time.Millisecond, 5*time.Millisecond)(mock)

	_, _, err := wrapped.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.ErrorIs(t, err, mock.Err)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRetryMiddleware_DoesNotRetryPermanentErrors(t *testing.T) {
	mock := newMockBackend()
	mock.Err = NewProviderError("mock", ErrorTypeAuthentication, 401, "", nil)
	wrapped := RetryMiddleware(5, time.Millisecond, 5*time.Millisecond)(mock)

	_, _, err := wrapped.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetryMiddleware_StopsOnCancel(t *testing.T) {
	mock := newMockBackend()
	mock.Err = errors.New("flaky")
	wrapped := RetryMiddleware(10, 50*time.Millisecond, time.Second)(mock)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := wrapped.Generate(ctx, "p")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetryMiddleware_DelayBounds(t *testing.T) {
	r := &retryBackend{baseDelay: 100 * time.Millisecond, maxDelay: time.Second}

	for attempt := range 10 {
		d := r.delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
	assert.Equal(t, time.Duration(0), (&retryBackend{}).delay(3))
}

func TestCircuitBreakerMiddleware_OpensAfterMaxFailures(t *testing.T) {
	mock := newMockBackend()
	mock.Err = errors.New("service error")
	wrapped := CircuitBreakerMiddleware(2, time.Hour)(mock)
	ctx := context.Background()

	_, _, err1 := wrapped.Generate(ctx, "1")
	_, _, err2 := wrapped.Generate(ctx, "2")
	_, _, err3 := wrapped.Generate(ctx, "3")

	assert.Equal(t, mock.Err, err1)
	assert.Equal(t, mock.Err, err2)
	assert.ErrorIs(t, err3, ErrCircuitOpen)
	assert.Equal(t, 2, mock.CallCount())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	require.True(t, cb.allow())
	cb.record(errors.New("fail"))
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.allow(), "trial call after cooldown")
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.False(t, cb.allow(), "only one trial at a time")

	cb.record(nil)
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.allow())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	for range 3 {
		cb.allow()
		cb.record(errors.New("fail"))
	}
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Minute)
	require.True(t, cb.allow())
	cb.record(errors.New("still failing"))

	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.allow())
}

func TestCircuitBreakerMiddleware_CancellationIsNotAFailure(t *testing.T) {
	mock := newMockBackend()
	mock.Err = context.Canceled
	wrapped := CircuitBreakerMiddleware(1, time.Hour)(mock)

	for range 3 {
		_, _, err := wrapped.Generate(context.Background(), "p")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, mock.CallCount())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
}

// recordingCollector captures metrics calls.
type recordingCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string]int
	labels     []map[string]string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{counters: map[string]float64{}, histograms: map[string]int{}}
}

func (c *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}
func (c *recordingCollector) RecordGauge(string, float64, map[string]string)         {}

func (c *recordingCollector) RecordCounter(metric string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[metric+"/"+labels["status"]+labels["token_type"]] += v
	c.labels = append(c.labels, labels)
}

func (c *recordingCollector) RecordHistogram(metric string, _ float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histograms[metric+"/"+labels["status"]]++
}

func TestMetricsMiddleware_Success(t *testing.T) {
	mock := newMockBackend()
	collector := newRecordingCollector()
	wrapped := MetricsMiddleware(collector, "chatgpt")(mock)

	_, _, err := wrapped.Generate(context.Background(), "p")
	require.NoError(t, err)

	assert.Equal(t, 1.0, collector.counters[MetricBackendRequests+"/success"])
	assert.Equal(t, 10.0, collector.counters[MetricBackendTokens+"/input"])
	assert.Equal(t, 20.0, collector.counters[MetricBackendTokens+"/output"])
	assert.Equal(t, 1, collector.histograms[MetricBackendLatency+"/success"])
	assert.Equal(t, "chatgpt", collector.labels[0]["source"])
	assert.Equal(t, "mock", collector.labels[0]["provider"])
	assert.Equal(t, "mock-model", collector.labels[0]["model"])
}

func TestMetricsMiddleware_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"circuit open", ErrCircuitOpen, "circuit_open"},
		{"timeout", context.DeadlineExceeded, "timeout"},
		{"classified", NewProviderError("mock", ErrorTypeRateLimit, 429, "", nil), "rate_limit"},
		{"other", errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockBackend()
			mock.Err = tt.err
			collector := newRecordingCollector()

			_, _, err := MetricsMiddleware(collector, "chatgpt")(mock).Generate(context.Background(), "p")
			require.Error(t, err)

			assert.Equal(t, 1.0, collector.counters[MetricBackendRequests+"/"+tt.status])
			assert.NotContains(t, collector.counters, MetricBackendTokens+"/input")
		})
	}
}

func TestMetricsMiddleware_NilCollector(t *testing.T) {
	mock := newMockBackend()
	assert.Same(t, mock, MetricsMiddleware(nil, "chatgpt")(mock))
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	mock := newMockBackend()
	wrapped := TracingMiddleware()(mock)

	text, usage, err := wrapped.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "test response", text)
	assert.Equal(t, Usage{InputTokens: 10, OutputTokens: 20}, usage)
	assert.Equal(t, "mock", wrapped.Provider())

	mock.Err = errors.New("boom")
	_, _, err = wrapped.Generate(context.Background(), "p")
	assert.EqualError(t, err, "boom")
}
