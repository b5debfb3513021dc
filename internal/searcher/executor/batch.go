package executor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/searchlab/termindex/internal/searcher/merger"
	"github.com/searchlab/termindex/internal/searcher/ranker"
)

// RunBatch ranks queries concurrently and returns the top limit documents of
// each, in input order. Every query writes only its own slot, and the
// summation order inside a query is fixed, so the output matches a sequential
// run exactly.
func (e *Executor) RunBatch(ctx context.Context, queries []ranker.Query, limit int) ([][]ranker.ScoredDoc, error) {
	start := time.Now()
	results := make([][]ranker.ScoredDoc, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores, err := e.processor.Score(q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = merger.TopK(scores, limit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running batch: %w", err)
	}

	e.logger.Info("batch completed",
		"queries", len(queries),
		"concurrency", e.concurrency,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}
