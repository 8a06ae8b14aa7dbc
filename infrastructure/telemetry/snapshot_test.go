package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/ports"
)

func recordFetches(pm *PrometheusMetrics) {
	pm.RecordCounter(MetricFetchTotal, 1, map[string]string{"source": "chatgpt", "status": "success"})
	pm.RecordCounter(MetricFetchTotal, 1, map[string]string{"source": "claude", "status": "success"})
	pm.RecordCounter(MetricFetchTotal, 1, map[string]string{"source": "grok", "status": "timeout"})
	pm.RecordLatency(MetricFetchLatency, 1500*time.Millisecond, map[string]string{"source": "chatgpt"})
}

func TestGatherFamilies_FetchCounts(t *testing.T) {
	pm, reg := newTestMetrics(t)
	recordFetches(pm)

	mfs, err := GatherFamilies(reg)
	require.NoError(t, err)
	require.Contains(t, mfs, "quorum_fetch_duration_seconds")

	counts := FetchCounts(mfs)
	assert.Equal(t, map[string]float64{"success": 2, "timeout": 1}, counts)
	assert.Equal(t, []string{"success", "timeout"}, SortedStatuses(counts))
}

func TestWriteSnapshot(t *testing.T) {
	pm, reg := newTestMetrics(t)
	recordFetches(pm)

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, reg))
	assert.Contains(t, buf.String(), `quorum_fetch_total{source="grok",status="timeout"} 1`)
	assert.Contains(t, buf.String(), "# TYPE quorum_fetch_duration_seconds histogram")
}

func TestParseSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    map[string]float64
	}{
		{
			name: "valid",
			input: "# TYPE quorum_fetch_total counter\n" +
				`quorum_fetch_total{source="a",status="success"} 3` + "\n" +
				`quorum_fetch_total{source="b",status="error"} 1` + "\n",
			want: map[string]float64{"success": 3, "error": 1},
		},
		{name: "garbage", input: "not a metric line {\n", wantErr: true},
		{
			name: "valid line then garbage",
			input: `quorum_fetch_total{source="a",status="success"} 3` + "\n" +
				"not a metric line {\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs, err := ParseSnapshot(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, mfs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, FetchCounts(mfs))
		})
	}
}

func TestScrape(t *testing.T) {
	pm, reg := newTestMetrics(t)
	recordFetches(pm)
	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	mfs, err := Scrape(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"success": 2, "timeout": 1}, FetchCounts(mfs))
}

func TestScrape_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := Scrape(context.Background(), srv.Client(), srv.URL)
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestFetchCounts_Missing(t *testing.T) {
	assert.Empty(t, FetchCounts(nil))
}

type failingGatherer struct{}

func (failingGatherer) Gather() ([]*dto.MetricFamily, error) {
	return nil, errors.New("collector exploded")
}

func TestGather_Error(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSnapshot(&buf, failingGatherer{})

	var metricsErr *ports.MetricsError
	require.ErrorAs(t, err, &metricsErr)
	assert.Equal(t, "gather", metricsErr.Operation)
	assert.Empty(t, buf.String())

	_, err = GatherFamilies(failingGatherer{})
	require.ErrorAs(t, err, &metricsErr)
}
