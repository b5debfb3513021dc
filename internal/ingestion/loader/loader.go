// Package loader reads the configured corpus source and produces the
// tokenized corpus shared by the indexer, the searcher and the batch ranker.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/searchlab/termindex/internal/indexer/tokenizer"
	"github.com/searchlab/termindex/internal/ingestion"
	"github.com/searchlab/termindex/internal/ingestion/pgsource"
	"github.com/searchlab/termindex/internal/ingestion/trec"
	"github.com/searchlab/termindex/internal/ingestion/validator"
	"github.com/searchlab/termindex/pkg/config"
	"github.com/searchlab/termindex/pkg/postgres"
)

// Documents reads raw documents from cfg.Corpus.Source and validates them.
func Documents(ctx context.Context, cfg *config.Config) ([]ingestion.Document, error) {
	var (
		docs []ingestion.Document
		err  error
	)
	switch cfg.Corpus.Source {
	case config.SourceTREC:
		docs, err = trec.ParseFile(cfg.Corpus.Path)
	case config.SourcePostgres:
		docs, err = fromPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateAll(docs); err != nil {
		return nil, fmt.Errorf("validating corpus: %w", err)
	}
	return docs, nil
}

// Corpus loads, validates and tokenizes the configured corpus.
func Corpus(ctx context.Context, cfg *config.Config) (ingestion.Corpus, error) {
	start := time.Now()
	docs, err := Documents(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tok, err := newTokenizer(cfg.Corpus.StopwordsPath)
	if err != nil {
		return nil, err
	}
	corpus, err := ingestion.Tokenize(docs, tok, cfg.Corpus.IncludeTitle)
	if err != nil {
		return nil, err
	}
	slog.Info("corpus loaded",
		"source", cfg.Corpus.Source,
		"doc_count", len(corpus),
		"tokens", corpus.TokenCount(),
		"stopwords", tok.StopWordCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return corpus, nil
}

func newTokenizer(stopwordsPath string) (*tokenizer.Tokenizer, error) {
	if stopwordsPath == "" {
		return tokenizer.New(nil), nil
	}
	words, err := tokenizer.LoadStopwords(stopwordsPath)
	if err != nil {
		return nil, err
	}
	return tokenizer.New(words), nil
}

func fromPostgres(ctx context.Context, cfg config.PostgresConfig) ([]ingestion.Document, error) {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return pgsource.New(client.DB).Load(ctx)
}
