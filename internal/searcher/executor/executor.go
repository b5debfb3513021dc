package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/searchlab/termindex/internal/indexer"
	"github.com/searchlab/termindex/internal/searcher/boolean"
	"github.com/searchlab/termindex/internal/searcher/merger"
	"github.com/searchlab/termindex/internal/searcher/parser"
	"github.com/searchlab/termindex/internal/searcher/ranker"
	"github.com/searchlab/termindex/pkg/logger"
	"github.com/searchlab/termindex/pkg/metrics"
)

const (
	ModeBM25    = "bm25"
	ModeBoolean = "boolean"
)

// SearchResult is the response of both search modes. Ranked searches fill
// Results; boolean searches fill DocIDs.
type SearchResult struct {
	Query      string             `json:"query"`
	Mode       string             `json:"mode"`
	Expression string             `json:"expression,omitempty"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results,omitempty"`
	DocIDs     []string           `json:"doc_ids,omitempty"`
	TermStats  map[string]int     `json:"term_stats"`
}

type Executor struct {
	engine      *indexer.Engine
	processor   *ranker.Processor
	metrics     *metrics.Metrics
	concurrency int
	logger      *slog.Logger
}

type Option func(*Executor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithConcurrency bounds the goroutines RunBatch uses.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func New(engine *indexer.Engine, params ranker.Params, opts ...Option) *Executor {
	e := &Executor{
		engine:      engine,
		processor:   ranker.NewProcessor(engine.Index(), engine.Lengths(), params),
		concurrency: 4,
		logger:      logger.WithComponent("query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ranked scores query with BM25 and returns the top limit documents.
func (e *Executor) Ranked(ctx context.Context, query string, limit int) (*SearchResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := parser.ParseRanked(query)
	scores, err := e.processor.Score(terms)
	if err != nil {
		e.record(ModeBM25, start, -1)
		return nil, fmt.Errorf("ranking query %q: %w", query, err)
	}

	termStats := make(map[string]int)
	for _, term := range terms {
		if df, err := e.engine.Index().IndexFrequency(term); err == nil {
			termStats[term] = df
		}
	}
	ranked := merger.TopK(scores, limit)
	e.record(ModeBM25, start, len(scores))
	e.logger.Debug("ranked query executed",
		"query", query,
		"terms", []string(terms),
		"candidates", len(scores),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     query,
		Mode:      ModeBM25,
		TotalHits: len(scores),
		Results:   ranked,
		TermStats: termStats,
	}, nil
}

// Boolean evaluates an AND/OR expression over term document sets. A term
// missing from the index fails the whole query with ErrNotFound.
func (e *Executor) Boolean(ctx context.Context, query string) (*SearchResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr, err := parser.ParseBoolean(query)
	if err != nil {
		return nil, err
	}
	termStats := make(map[string]int)
	docs, err := e.eval(expr, termStats)
	if err != nil {
		e.record(ModeBoolean, start, -1)
		return nil, err
	}
	e.record(ModeBoolean, start, len(docs))
	e.logger.Debug("boolean query executed",
		"query", query,
		"expression", expr.String(),
		"results", len(docs),
	)
	return &SearchResult{
		Query:      query,
		Mode:       ModeBoolean,
		Expression: expr.String(),
		TotalHits:  len(docs),
		DocIDs:     docs.Sorted(),
		TermStats:  termStats,
	}, nil
}

func (e *Executor) eval(expr *parser.Expr, termStats map[string]int) (boolean.DocSet, error) {
	if expr.Op == parser.OpTerm {
		result, err := boolean.Search(expr.Term, e.engine.Index())
		if err != nil {
			return nil, err
		}
		termStats[result.Term] = len(result.Docs)
		return result.Docs, nil
	}
	left, err := e.eval(expr.Left, termStats)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(expr.Right, termStats)
	if err != nil {
		return nil, err
	}
	if expr.Op == parser.OpOR {
		return boolean.Union(left, right), nil
	}
	return boolean.Intersect(left, right), nil
}

// record updates search metrics. hits < 0 marks a failed query.
func (e *Executor) record(mode string, start time.Time, hits int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	resultType := "hit"
	switch {
	case hits < 0:
		resultType = "error"
	case hits == 0:
		resultType = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(mode, resultType).Inc()
	if hits >= 0 {
		e.metrics.SearchResultsCount.Observe(float64(hits))
	}
}
