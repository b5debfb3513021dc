// Package ingestion defines the document types read from corpus sources and
// turns them into the tokenized corpus the index is built from.
package ingestion

import (
	"fmt"

	"github.com/searchlab/termindex/internal/indexer/tokenizer"
	apperrors "github.com/searchlab/termindex/pkg/errors"
)

// Document is a single article as read from a corpus source.
type Document struct {
	ID    string `json:"doc_id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Corpus maps a document ID to its ordered, normalized tokens.
type Corpus map[string][]string

// TokenCount returns the total number of tokens in the corpus.
func (c Corpus) TokenCount() int {
	total := 0
	for _, tokens := range c {
		total += len(tokens)
	}
	return total
}

// Tokenize builds a Corpus from raw documents. When includeTitle is set the
// headline is tokenized ahead of the body text. Duplicate IDs are rejected.
func Tokenize(docs []Document, tok *tokenizer.Tokenizer, includeTitle bool) (Corpus, error) {
	corpus := make(Corpus, len(docs))
	for _, doc := range docs {
		if _, exists := corpus[doc.ID]; exists {
			return nil, fmt.Errorf("document %q appears twice: %w", doc.ID, apperrors.ErrMalformedInput)
		}
		text := doc.Text
		if includeTitle && doc.Title != "" {
			text = doc.Title + " " + text
		}
		corpus[doc.ID] = tok.Tokenize(text)
	}
	return corpus, nil
}
