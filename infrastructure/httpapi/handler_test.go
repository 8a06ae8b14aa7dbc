package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
)

type fakeService struct {
	result  domain.AggregationResult
	err     error
	ids     []string
	query   string
	sources []string
}

func (f *fakeService) Process(_ context.Context, query string, sources []string) (domain.AggregationResult, error) {
	f.query = query
	f.sources = sources
	return f.result, f.err
}

func (f *fakeService) SourceIDs() []string { return f.ids }

func rankedResult(t *testing.T) domain.AggregationResult {
	t.Helper()
	best := domain.NewScoredResponse(
		domain.SourceResponse{SourceID: "claude", Text: "answer"},
		0.8,
		domain.Breakdown{Relevance: 1, Consensus: 1, Length: 0.1},
	)
	result, err := domain.NewRankedResult("q", []domain.ScoredResponse{best})
	require.NoError(t, err)
	result.ID = "id-1"
	return result
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Detail
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        func(t *testing.T) *fakeService
		wantStatus int
		wantDetail string
	}{
		{
			name:       "success",
			body:       `{"query":"q","sources":["claude"]}`,
			svc:        func(t *testing.T) *fakeService { return &fakeService{result: rankedResult(t)} },
			wantStatus: http.StatusOK,
		},
		{
			name:       "blank query",
			body:       `{"query":"   "}`,
			svc:        func(*testing.T) *fakeService { return &fakeService{} },
			wantStatus: http.StatusBadRequest,
			wantDetail: domain.ErrEmptyQuery.Error(),
		},
		{
			name:       "malformed body",
			body:       `{"query":`,
			svc:        func(*testing.T) *fakeService { return &fakeService{} },
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no responses",
			body: `{"query":"q"}`,
			svc: func(*testing.T) *fakeService {
				return &fakeService{result: domain.NewFailedResult("q", domain.ErrNoResponses)}
			},
			wantStatus: http.StatusInternalServerError,
			wantDetail: domain.ErrNoResponses.Error(),
		},
		{
			name:       "service error",
			body:       `{"query":"q"}`,
			svc:        func(*testing.T) *fakeService { return &fakeService{err: domain.ErrNoSources} },
			wantStatus: http.StatusInternalServerError,
			wantDetail: domain.ErrNoSources.Error(),
		},
		{
			name:       "service rejects query",
			body:       `{"query":"q"}`,
			svc:        func(*testing.T) *fakeService { return &fakeService{err: domain.ErrEmptyQuery} },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := tt.svc(t)
			rec := doRequest(New(svc), http.MethodPost, "/aggregate", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, decodeDetail(t, rec))
			}
		})
	}
}

func TestAggregate_ReturnsRankedResult(t *testing.T) {
	svc := &fakeService{result: rankedResult(t)}
	rec := doRequest(New(svc), http.MethodPost, "/aggregate", `{"query":"what is go","sources":["claude","gemini"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.AggregationResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.NotNil(t, got.Best)
	assert.Equal(t, "claude", got.Best.SourceID)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "what is go", svc.query)
	assert.Equal(t, []string{"claude", "gemini"}, svc.sources)
}

func TestAggregate_LLMsAlias(t *testing.T) {
	svc := &fakeService{result: rankedResult(t)}
	rec := doRequest(New(svc), http.MethodPost, "/aggregate", `{"query":"q","llms":["chatgpt"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"chatgpt"}, svc.sources)
}

func TestAggregate_MethodNotAllowed(t *testing.T) {
	rec := doRequest(New(&fakeService{}), http.MethodGet, "/aggregate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSources(t *testing.T) {
	t.Run("lists configured sources", func(t *testing.T) {
		rec := doRequest(New(&fakeService{ids: []string{"chatgpt", "claude"}}), http.MethodGet, "/sources", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sources":["chatgpt","claude"]}`, rec.Body.String())
	})

	t.Run("empty list is not null", func(t *testing.T) {
		rec := doRequest(New(&fakeService{}), http.MethodGet, "/sources", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sources":[]}`, rec.Body.String())
	})

	t.Run("rejects post", func(t *testing.T) {
		rec := doRequest(New(&fakeService{}), http.MethodPost, "/sources", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	rec := doRequest(New(&fakeService{}), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	h := New(&fakeService{}, WithAllowedOrigins([]string{"http://localhost:3000"}))

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/aggregate", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight from unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/aggregate", nil)
		req.Header.Set("Origin", "http://evil.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		h := New(&fakeService{}, WithAllowedOrigins([]string{"*"}))
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "http://anything.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://anything.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAggregate_UnexpectedError(t *testing.T) {
	svc := &fakeService{err: errors.New("boom")}
	rec := doRequest(New(svc), http.MethodPost, "/aggregate", `{"query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", decodeDetail(t, rec))
}
