// Package validator checks documents read from a corpus source before they
// are tokenized. It enforces ID and text constraints and returns per-field
// error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/searchlab/termindex/internal/ingestion"
	apperrors "github.com/searchlab/termindex/pkg/errors"
)

const (
	maxIDLength    = 255
	maxTitleLength = 1024
	maxTextLength  = 16 << 20
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	DocID  string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return fmt.Sprintf("document %q: %s", e.DocID, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrMalformedInput
}

// ValidateDocument checks that a document has a usable ID and that its title
// and text stay within bounds.
func ValidateDocument(doc *ingestion.Document) error {
	errs := make(map[string]string)

	id := strings.TrimSpace(doc.ID)
	if id == "" {
		errs["doc_id"] = "document id is required"
	} else if len(id) > maxIDLength {
		errs["doc_id"] = fmt.Sprintf("document id must be at most %d characters", maxIDLength)
	}
	if len(doc.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(doc.Text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}
	if len(errs) > 0 {
		return &ValidationError{DocID: doc.ID, Fields: errs}
	}
	return nil
}

// ValidateAll validates every document and rejects duplicate IDs.
func ValidateAll(docs []ingestion.Document) error {
	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		if err := ValidateDocument(&docs[i]); err != nil {
			return err
		}
		if _, dup := seen[docs[i].ID]; dup {
			return &ValidationError{
				DocID:  docs[i].ID,
				Fields: map[string]string{"doc_id": "duplicate document id"},
			}
		}
		seen[docs[i].ID] = struct{}{}
	}
	return nil
}
