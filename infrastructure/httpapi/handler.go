// Package httpapi exposes the aggregation engine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/ahrav/go-quorum/internal/domain"
)

// maxBodyBytes caps the size of an aggregate request body.
const maxBodyBytes = 1 << 20

// Service is the part of the aggregator the handler depends on.
type Service interface {
	Process(ctx context.Context, query string, sources []string) (domain.AggregationResult, error)
	SourceIDs() []string
}

// AggregateRequest is the body of POST /aggregate. "llms" is accepted as an
// alias for "sources".
type AggregateRequest struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources,omitempty"`
	LLMs    []string `json:"llms,omitempty"`
}

func (r AggregateRequest) sourceIDs() []string {
	if len(r.Sources) > 0 {
		return r.Sources
	}
	return r.LLMs
}

// Handler serves the HTTP API.
type Handler struct {
	service Service
	origins []string
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithAllowedOrigins enables CORS for the given origins. "*" allows any.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = slices.Clone(origins) }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates the API handler with all routes registered.
func New(service Service, opts ...Option) http.Handler {
	h := &Handler{
		service: service,
		logger:  slog.Default(),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc("/aggregate", h.handleAggregate)
	h.mux.HandleFunc("/sources", h.handleSources)
	h.mux.HandleFunc("/healthz", h.handleHealth)

	return h.cors(h.mux)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type sourcesResponse struct {
	Sources []string `json:"sources"`
}

// POST /aggregate
func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AggregateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonErr(w, http.StatusBadRequest, domain.ErrEmptyQuery.Error())
		return
	}

	result, err := h.service.Process(r.Context(), req.Query, req.sourceIDs())
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "aggregate request failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	case result.Failed():
		jsonErr(w, http.StatusInternalServerError, result.Error)
		return
	}
	jsonResp(w, http.StatusOK, result)
}

// GET /sources
func (h *Handler) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ids := h.service.SourceIDs()
	if ids == nil {
		ids = []string{}
	}
	jsonResp(w, http.StatusOK, sourcesResponse{Sources: ids})
}

// GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cors answers preflight requests and sets Access-Control headers for
// allowed origins. Requests from other origins pass through without them.
func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && h.originAllowed(origin)
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				w.WriteHeader(http.StatusNoContent)
			} else {
				w.WriteHeader(http.StatusForbidden)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) originAllowed(origin string) bool {
	return slices.Contains(h.origins, "*") || slices.Contains(h.origins, origin)
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Detail: msg})
}
