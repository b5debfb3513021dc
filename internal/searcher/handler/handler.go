package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/searchlab/termindex/internal/analytics"
	"github.com/searchlab/termindex/internal/indexer"
	"github.com/searchlab/termindex/internal/indexer/index"
	"github.com/searchlab/termindex/internal/indexer/tokenizer"
	"github.com/searchlab/termindex/internal/searcher/cache"
	"github.com/searchlab/termindex/internal/searcher/executor"
	"github.com/searchlab/termindex/internal/searcher/ranker"
	apperrors "github.com/searchlab/termindex/pkg/errors"
	"github.com/searchlab/termindex/pkg/logger"
	"github.com/searchlab/termindex/pkg/middleware"
)

type SearchExecutor interface {
	Ranked(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
	Boolean(ctx context.Context, query string) (*executor.SearchResult, error)
}

type Handler struct {
	executor     SearchExecutor
	engine       *indexer.Engine
	params       ranker.Params
	cache        *cache.QueryCache
	collector    *analytics.Collector
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

type Options struct {
	Params       ranker.Params
	Cache        *cache.QueryCache
	Collector    *analytics.Collector
	DefaultLimit int
	MaxResults   int
}

func New(exec SearchExecutor, engine *indexer.Engine, opts Options) *Handler {
	return &Handler{
		executor:     exec,
		engine:       engine,
		params:       opts.Params,
		cache:        opts.Cache,
		collector:    opts.Collector,
		defaultLimit: opts.DefaultLimit,
		maxResults:   opts.MaxResults,
		logger:       logger.WithComponent("search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/boolean", h.Boolean)
	mux.HandleFunc("GET /api/v1/terms/{term}", h.Term)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search ranks documents with BM25: GET /api/v1/search?q=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
		if h.maxResults > 0 && limit > h.maxResults {
			limit = h.maxResults
		}
	}
	h.serve(w, r, executor.ModeBM25, query, limit, func(ctx context.Context) (*executor.SearchResult, error) {
		return h.executor.Ranked(ctx, query, limit)
	})
}

// Boolean evaluates AND/OR expressions: GET /api/v1/boolean?q=a+AND+b.
func (h *Handler) Boolean(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	h.serve(w, r, executor.ModeBoolean, query, 0, func(ctx context.Context) (*executor.SearchResult, error) {
		return h.executor.Boolean(ctx, query)
	})
}

func (h *Handler) serve(
	w http.ResponseWriter,
	r *http.Request,
	mode, query string,
	limit int,
	compute func(ctx context.Context) (*executor.SearchResult, error),
) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, mode, query, limit, compute)
	} else {
		result, err = compute(ctx)
	}
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		h.track(ctx, analytics.SearchEvent{Type: analytics.EventError, Mode: mode, Query: query, LatencyMs: latencyMs})
		status := apperrors.HTTPStatusCode(err)
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		if status >= http.StatusInternalServerError {
			log.Error("search failed", "mode", mode, "query", query, "error", err)
			h.writeError(w, status, "search failed")
			return
		}
		log.Info("search rejected", "mode", mode, "query", query, "error", err)
		h.writeError(w, status, err.Error())
		return
	}

	returned := len(result.Results)
	if mode == executor.ModeBoolean {
		returned = len(result.DocIDs)
	}
	log.Info("search completed",
		"mode", mode,
		"query", query,
		"total_hits", result.TotalHits,
		"returned", returned,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)

	eventType := analytics.EventCacheMiss
	switch {
	case result.TotalHits == 0:
		eventType = analytics.EventZeroResult
	case cacheHit:
		eventType = analytics.EventCacheHit
	}
	terms := make([]string, 0, len(result.TermStats))
	for term := range result.TermStats {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	h.track(ctx, analytics.SearchEvent{
		Type:      eventType,
		Mode:      mode,
		Query:     query,
		Terms:     terms,
		TotalHits: result.TotalHits,
		Returned:  returned,
		LatencyMs: latencyMs,
		CacheHit:  cacheHit,
	})
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent) {
	if h.collector == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.collector.Track(event)
}

type termResponse struct {
	Term              string            `json:"term"`
	DocumentFrequency int               `json:"document_frequency"`
	TotalFrequency    int               `json:"total_frequency"`
	IDF               float64           `json:"idf"`
	Postings          index.PostingList `json:"postings"`
}

// Term returns the postings of one term: GET /api/v1/terms/{term}.
func (h *Handler) Term(w http.ResponseWriter, r *http.Request) {
	term := tokenizer.Normalize(r.PathValue("term"))
	postings, err := h.engine.Index().PostingList(term)
	if apperrors.IsNotFound(err) {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("term %q not found", term))
		return
	}
	if err != nil {
		h.logger.Error("term lookup failed", "term", term, "error", err)
		h.writeError(w, http.StatusInternalServerError, "term lookup failed")
		return
	}
	h.writeJSON(w, http.StatusOK, termResponse{
		Term:              term,
		DocumentFrequency: len(postings),
		TotalFrequency:    postings.TotalFrequency(),
		IDF:               ranker.IDF(h.engine.Lengths().DocumentCount(), len(postings)),
		Postings:          postings,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"index": h.engine.Stats(),
		"bm25":  h.params,
	})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.collector == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.collector.Aggregator().Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
