// Command bm25 ranks a corpus against every query of a query file and prints
// the top results of each query.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/searchlab/termindex/internal/indexer"
	"github.com/searchlab/termindex/internal/ingestion/loader"
	"github.com/searchlab/termindex/internal/searcher/executor"
	"github.com/searchlab/termindex/internal/searcher/parser"
	"github.com/searchlab/termindex/internal/searcher/ranker"
	"github.com/searchlab/termindex/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		corpusFlags loader.Flags
		queriesPath string
		top         int
		k1, b       float64
	)
	flagSet := pflag.NewFlagSet("bm25", pflag.ContinueOnError)
	corpusFlags.AddFlags(flagSet)
	flagSet.StringVarP(&queriesPath, "queries", "q", "", "path to the query file, one query per line (required)")
	flagSet.IntVarP(&top, "top", "n", 10, "number of results printed per query")
	flagSet.Float64Var(&k1, "k1", 0, "BM25 k1 (default from config)")
	flagSet.Float64Var(&b, "b", 0, "BM25 b (default from config)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			fmt.Fprintf(os.Stderr, "Usage: bm25 --queries FILE [flags]\n\nRank the corpus with BM25 for each query in FILE.\n\nFlags:\n")
			flagSet.PrintDefaults()
			return nil
		}
		return err
	}
	if queriesPath == "" {
		return fmt.Errorf("--queries is required")
	}

	cfg, err := corpusFlags.Config()
	if err != nil {
		return err
	}
	if flagSet.Changed("k1") {
		cfg.Search.BM25.K1 = k1
	}
	if flagSet.Changed("b") {
		cfg.Search.BM25.B = b
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	queries, err := parser.ParseQueryFile(queriesPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpus, err := loader.Corpus(ctx, cfg)
	if err != nil {
		return err
	}
	engine := indexer.NewEngine(corpus)
	exec := executor.New(engine,
		ranker.Params{K1: cfg.Search.BM25.K1, B: cfg.Search.BM25.B},
		executor.WithConcurrency(cfg.Search.BatchConcurrency),
	)

	results, err := exec.RunBatch(ctx, queries, top)
	if err != nil {
		return err
	}
	for i, query := range queries {
		fmt.Printf("Query: %s\n", strings.Join(query, " "))
		for rank, doc := range results[i] {
			fmt.Printf("%4d\t%2s\t%12v\n", rank+1, doc.DocID, doc.Score)
		}
	}
	return nil
}
