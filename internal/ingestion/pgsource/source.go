// Package pgsource loads corpus documents from a PostgreSQL table instead of
// a TREC dump. The table is expected to look like
//
//	CREATE TABLE documents (
//	    doc_id TEXT PRIMARY KEY,
//	    title  TEXT NOT NULL DEFAULT '',
//	    body   TEXT NOT NULL
//	);
package pgsource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/searchlab/termindex/internal/ingestion"
	"github.com/searchlab/termindex/pkg/logger"
)

const selectDocuments = `SELECT doc_id, title, body FROM documents ORDER BY doc_id`

// Querier is the subset of *sql.DB the source needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Source reads documents from the documents table.
type Source struct {
	db     Querier
	logger *slog.Logger
}

// New creates a Source over db.
func New(db Querier) *Source {
	return &Source{
		db:     db,
		logger: logger.WithComponent("pg-source"),
	}
}

// Load returns every document ordered by doc_id.
func (s *Source) Load(ctx context.Context) ([]ingestion.Document, error) {
	rows, err := s.db.QueryContext(ctx, selectDocuments)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]ingestion.Document, 0, 256)
	for rows.Next() {
		var doc ingestion.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Text); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	s.logger.Info("documents loaded from postgres", "doc_count", len(docs))
	return docs, nil
}
