package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-quorum/infrastructure/httpapi"
	"github.com/ahrav/go-quorum/infrastructure/telemetry"
	"github.com/ahrav/go-quorum/internal/application"
	"github.com/ahrav/go-quorum/internal/domain"
)

// liveService forwards to the current aggregator, which is replaced when the
// config file changes.
type liveService struct {
	current atomic.Pointer[application.Aggregator]
}

func (s *liveService) Process(ctx context.Context, query string, sources []string) (domain.AggregationResult, error) {
	return s.current.Load().Process(ctx, query, sources)
}

func (s *liveService) SourceIDs() []string { return s.current.Load().SourceIDs() }

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	loader := application.NewConfigLoader()
	cfg, err := loader.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	slog.Info("quorum-server starting",
		"config", *configPath,
		"addr", cfg.Server.Addr,
		"sources", cfg.SourceIDs(),
	)

	metrics := telemetry.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	deps := application.Dependencies{Metrics: metrics, Logger: logger}

	agg, err := application.BuildAggregator(cfg, deps)
	if err != nil {
		slog.Error("failed to build aggregator", "err", err)
		os.Exit(1)
	}
	svc := &liveService{}
	svc.current.Store(agg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Source changes apply to new requests. Server and logging settings
	// need a restart.
	go func() {
		err := loader.WatchConfig(ctx, *configPath, func(next *application.Config) {
			agg, err := application.BuildAggregator(next, deps)
			if err != nil {
				slog.Error("config reload rejected", "err", err)
				return
			}
			svc.current.Store(agg)
			slog.Info("sources reloaded", "sources", next.SourceIDs())
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", httpapi.New(svc,
		httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		httpapi.WithLogger(logger),
	))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("quorum-server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	srv.Shutdown(shutdownCtx) //nolint:errcheck
}
