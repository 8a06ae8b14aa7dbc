package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/ahrav/go-quorum/internal/ports"
)

// WriteSnapshot gathers every metric from g and writes it to w in the
// Prometheus text exposition format. One-shot runs use it in place of a
// scrape endpoint.
func WriteSnapshot(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return ports.NewMetricsError("*", "gather", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return ports.NewMetricsError(mf.GetName(), "encode", err)
		}
	}
	return nil
}

// GatherFamilies gathers g and keys the families by name.
func GatherFamilies(g prometheus.Gatherer) (map[string]*dto.MetricFamily, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, ports.NewMetricsError("*", "gather", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		byName[mf.GetName()] = mf
	}
	return byName, nil
}

// ParseSnapshot decodes a text exposition into metric families keyed by
// name. Any malformed line fails the whole parse.
func ParseSnapshot(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// Scrape fetches the metrics endpoint of a running quorum-server and parses
// the exposition.
func Scrape(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return ParseSnapshot(resp.Body)
}

// FetchCounts sums quorum_fetch_total by status, for example
// {"success": 3, "timeout": 1}.
func FetchCounts(mfs map[string]*dto.MetricFamily) map[string]float64 {
	counts := make(map[string]float64)
	mf := mfs["quorum_fetch_total"]
	if mf == nil {
		return counts
	}
	for _, m := range mf.GetMetric() {
		status := "unknown"
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status" {
				status = lp.GetValue()
			}
		}
		counts[status] += m.GetCounter().GetValue()
	}
	return counts
}

// SortedStatuses returns the keys of counts in lexical order.
func SortedStatuses(counts map[string]float64) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
