package application

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-quorum/infrastructure/source"
	"github.com/ahrav/go-quorum/infrastructure/storage"
	"github.com/ahrav/go-quorum/infrastructure/telemetry"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Dependencies carries the optional collaborators used by BuildAggregator.
// Zero values select defaults: os.LookupEnv, slog.Default, no metrics and
// a JSON file store in the configured directory.
type Dependencies struct {
	Metrics   ports.MetricsCollector
	Logger    *slog.Logger
	LookupEnv func(string) (string, bool)

	// Store overrides the configured result store.
	Store ports.ResultStore
}

// ErrNoUsableSources is returned when no configured source could be built.
var ErrNoUsableSources = errors.New("no configured source could be built")

// BuildRegistry creates one LLM-backed source per configured entry. API keys
// are read from the environment variable each source names.
//
// A source that cannot be built, usually for lack of an API key, is skipped
// with a warning. Only when every source fails is an error returned; it
// joins ErrNoUsableSources with each per-source failure.
func BuildRegistry(
	cfg *Config,
	metrics ports.MetricsCollector,
	lookupEnv func(string) (string, bool),
	logger *slog.Logger,
) (*source.Registry, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := source.NewRegistry()
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, sc := range cfg.Sources {
		key, ok := lookupEnv(sc.APIKeyEnv)
		if !ok || key == "" {
			errs = append(errs, ports.NewConfigError(sc.APIKeyEnv,
				fmt.Errorf("api key for source %q is not set: %w", sc.ID, source.ErrEmptyAPIKey)))
			continue
		}

		backend, err := source.NewBackend(backendConfig(sc, key), sourceMiddleware(sc, metrics)...)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %q: %w", sc.ID, err))
			continue
		}

		src, err := source.NewLLMSource(sc.ID, backend)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %q: %w", sc.ID, err))
			continue
		}
		if err := registry.Register(src); err != nil {
			errs = append(errs, err)
		}
	}
	if registry.Len() == 0 {
		return nil, errors.Join(append([]error{ErrNoUsableSources}, errs...)...)
	}
	for _, err := range errs {
		logger.Warn("skipping source", "err", err)
	}
	return registry, nil
}

func backendConfig(sc SourceConfig, apiKey string) source.Config {
	return source.Config{
		Provider:    sc.Provider,
		APIKey:      apiKey,
		Model:       sc.Model,
		BaseURL:     sc.BaseURL,
		Timeout:     sc.Timeout,
		MaxTokens:   sc.MaxTokens,
		Temperature: sc.Temperature,
		System:      sc.System,
	}
}

// sourceMiddleware builds the middleware stack for one source, outermost
// first: tracing, metrics, circuit breaker, retry, rate limit, timeout.
// The timeout applies to each attempt, not to the retry loop as a whole.
func sourceMiddleware(sc SourceConfig, metrics ports.MetricsCollector) []source.Middleware {
	mw := []source.Middleware{source.TracingMiddleware()}
	if metrics != nil {
		mw = append(mw, source.MetricsMiddleware(metrics, sc.ID))
	}
	if sc.CircuitBreaker.MaxFailures > 0 {
		mw = append(mw, source.CircuitBreakerMiddleware(sc.CircuitBreaker.MaxFailures, sc.CircuitBreaker.Cooldown))
	}
	if sc.Retry.MaxRetries > 0 {
		mw = append(mw, source.RetryMiddleware(sc.Retry.MaxRetries, sc.Retry.BaseDelay, sc.Retry.MaxDelay))
	}
	if sc.RateLimit.RequestsPerSecond > 0 {
		mw = append(mw, source.RateLimitMiddleware(rate.Limit(sc.RateLimit.RequestsPerSecond), sc.RateLimit.Burst))
	}
	return append(mw, source.TimeoutMiddleware(source.ClampTimeout(sc.Timeout)))
}

// BuildAggregator assembles the full pipeline described by cfg.
func BuildAggregator(cfg *Config, deps Dependencies) (*Aggregator, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := BuildRegistry(cfg, deps.Metrics, deps.LookupEnv, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}

	observers := telemetry.Observers{
		telemetry.NewLogObserver(logger),
		telemetry.NewTraceObserver(),
	}
	if deps.Metrics != nil {
		observers = append(observers, telemetry.NewMetricsObserver(deps.Metrics))
	}

	collector, err := NewFanOutCollector(cfg.Collector, observers)
	if err != nil {
		return nil, err
	}
	engine := NewScoringEngine(WithEngineObserver(observers))

	opts := []AggregatorOption{
		WithDefaultSources(cfg.DefaultSources),
		WithLogger(logger),
	}
	switch {
	case deps.Store != nil:
		opts = append(opts, WithResultStore(deps.Store))
	case !cfg.Storage.Disabled:
		opts = append(opts, WithResultStore(storage.NewJSONFileStore(cfg.Storage.Dir)))
	}

	return NewAggregator(registry, collector, engine, opts...)
}
