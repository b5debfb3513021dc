package indexer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/searchlab/termindex/internal/indexer/export"
	"github.com/searchlab/termindex/internal/indexer/index"
	"github.com/searchlab/termindex/pkg/logger"
	"github.com/searchlab/termindex/pkg/metrics"
)

// Engine bundles the inverted index and the document length table built
// from one corpus snapshot. It is read-only after NewEngine returns.
type Engine struct {
	index   *index.InvertedIndex
	lengths *index.LengthTable
	metrics *metrics.Metrics
	logger  *slog.Logger
	built   time.Time
}

// Stats summarises an engine for logs and the stats endpoint.
type Stats struct {
	Documents     int       `json:"documents"`
	Terms         int       `json:"terms"`
	AverageLength float64   `json:"average_length"`
	BuiltAt       time.Time `json:"built_at"`
}

type Option func(*Engine)

// WithMetrics records index gauges and export counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds the index and length table from corpus.
func NewEngine(corpus map[string][]string, opts ...Option) *Engine {
	e := &Engine{
		logger: logger.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	start := time.Now()
	e.index = index.Build(corpus)
	e.lengths = index.BuildLengthTable(corpus)
	e.built = time.Now()

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.IndexBuildSeconds.Observe(elapsed.Seconds())
		e.metrics.IndexTerms.Set(float64(e.index.TermCount()))
		e.metrics.IndexDocuments.Set(float64(e.lengths.DocumentCount()))
	}
	e.logger.Info("index built",
		"doc_count", e.lengths.DocumentCount(),
		"terms", e.index.TermCount(),
		"avg_doc_length", e.lengths.AverageLength(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return e
}

func (e *Engine) Index() *index.InvertedIndex {
	return e.index
}

func (e *Engine) Lengths() *index.LengthTable {
	return e.lengths
}

func (e *Engine) Stats() Stats {
	return Stats{
		Documents:     e.lengths.DocumentCount(),
		Terms:         e.index.TermCount(),
		AverageLength: e.lengths.AverageLength(),
		BuiltAt:       e.built,
	}
}

// Export writes the inverted index to base (".json" and optionally ".gz"
// are appended) and returns the written path.
func (e *Engine) Export(base string, opts export.Options) (string, error) {
	start := time.Now()
	path, err := export.NewWriter(opts).Write(base, e.index.Snapshot())
	if err != nil {
		e.recordExport("error")
		return "", fmt.Errorf("exporting index: %w", err)
	}
	e.recordExport("ok")
	e.logger.Info("index exported",
		"path", path,
		"format", opts.Format,
		"compressed", opts.Compressed,
		"terms", e.index.TermCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

func (e *Engine) recordExport(status string) {
	if e.metrics != nil {
		e.metrics.IndexExportsTotal.WithLabelValues(status).Inc()
	}
}
