package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-quorum/infrastructure/telemetry"
	"github.com/ahrav/go-quorum/internal/application"
	"github.com/ahrav/go-quorum/internal/domain"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.yaml", "Path to YAML config file")
		query      = flag.String("query", "", "Query to send to every source (read from stdin when empty)")
		sources    = flag.String("sources", "", "Comma-separated source IDs to query (default: configured defaults)")
		showStats  = flag.Bool("metrics", false, "Print a fetch summary and a metrics snapshot to stderr after the run")
		statsURL   = flag.String("stats", "", "Print the fetch summary scraped from a running quorum-server metrics URL and exit")
	)
	flag.Parse()

	if *statsURL != "" {
		if err := printRemoteStats(os.Stdout, *statsURL); err != nil {
			fmt.Fprintf(os.Stderr, "failed to read stats: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	q := strings.TrimSpace(*query)
	if q == "" {
		if q, err = readQuery(os.Stdin, os.Stderr); err != nil {
			logger.Error("failed to read query", "err", err)
			os.Exit(1)
		}
	}

	deps := application.Dependencies{Logger: logger}
	reg := prometheus.NewRegistry()
	if *showStats {
		deps.Metrics = telemetry.NewPrometheusMetrics(reg)
	}

	agg, err := application.BuildAggregator(cfg, deps)
	if err != nil {
		logger.Error("failed to build aggregator", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("processing query", "query", q)
	result, err := agg.Process(ctx, q, splitSources(*sources))
	if *showStats {
		printStats(os.Stderr, reg)
	}
	if err != nil {
		logger.Error("aggregation failed", "err", err)
		os.Exit(1)
	}
	if result.Failed() {
		logger.Error("aggregation failed", "err", result.Error)
		os.Exit(2)
	}
	printResult(os.Stdout, result)
}

func readQuery(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Enter your query: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func splitSources(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func printResult(w io.Writer, result domain.AggregationResult) {
	fmt.Fprintln(w, "\n--- Best Response ---")
	fmt.Fprintf(w, "Source: %s\n", result.Best.SourceID)
	fmt.Fprintf(w, "Score: %.2f\n", result.Best.Score)
	fmt.Fprintf(w, "Content:\n%s\n", result.Best.Text)

	if len(result.All) > 1 {
		fmt.Fprintln(w, "\n--- Ranking ---")
		for i, r := range result.All {
			fmt.Fprintf(w, "%d. %-12s %.3f (relevance %.2f, consensus %.2f, length %.2f)\n",
				i+1, r.SourceID, r.Score, r.Breakdown.Relevance, r.Breakdown.Consensus, r.Breakdown.Length)
		}
	}
	if result.Location != "" {
		fmt.Fprintf(w, "\nAll responses saved to: %s\n", result.Location)
	}
}

func printStats(w io.Writer, g prometheus.Gatherer) {
	mfs, err := telemetry.GatherFamilies(g)
	if err != nil {
		fmt.Fprintf(w, "metrics unavailable: %v\n", err)
		return
	}
	printFetchCounts(w, telemetry.FetchCounts(mfs))
	fmt.Fprintln(w, "\n--- Metrics ---")
	if err := telemetry.WriteSnapshot(w, g); err != nil {
		fmt.Fprintf(w, "metrics unavailable: %v\n", err)
	}
}

func printRemoteStats(w io.Writer, url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mfs, err := telemetry.Scrape(ctx, &http.Client{}, url)
	if err != nil {
		return err
	}
	printFetchCounts(w, telemetry.FetchCounts(mfs))
	return nil
}

func printFetchCounts(w io.Writer, counts map[string]float64) {
	fmt.Fprintln(w, "\n--- Fetches ---")
	for _, status := range telemetry.SortedStatuses(counts) {
		fmt.Fprintf(w, "%-10s %.0f\n", status, counts[status])
	}
}
