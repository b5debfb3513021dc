// Package trec reads TREC-formatted XML dumps of wiki articles. Each <DOC>
// element carries a <DOCNO>, an optional <HEADLINE> and the article text
// in <P>.
package trec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/searchlab/termindex/internal/ingestion"
	apperrors "github.com/searchlab/termindex/pkg/errors"
)

type trecDoc struct {
	DocNo    string   `xml:"DOCNO"`
	Headline string   `xml:"HEADLINE"`
	Paras    []string `xml:"P"`
}

// ParseFile opens path and parses it as a TREC dump.
func ParseFile(path string) ([]ingestion.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()
	docs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return docs, nil
}

// Parse streams <DOC> elements from r in document order. A document without
// DOCNO, a repeated DOCNO or broken XML yields ErrMalformedInput.
func Parse(r io.Reader) ([]ingestion.Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	docs := make([]ingestion.Document, 0, 64)
	seen := make(map[string]struct{})
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading xml token: %v: %w", err, apperrors.ErrMalformedInput)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "DOC" {
			continue
		}
		var raw trecDoc
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return nil, fmt.Errorf("decoding DOC #%d: %v: %w", len(docs)+1, err, apperrors.ErrMalformedInput)
		}
		id := strings.TrimSpace(raw.DocNo)
		if id == "" {
			return nil, fmt.Errorf("DOC #%d has no DOCNO: %w", len(docs)+1, apperrors.ErrMalformedInput)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("DOCNO %q repeated: %w", id, apperrors.ErrMalformedInput)
		}
		seen[id] = struct{}{}

		var text string
		if len(raw.Paras) > 0 {
			text = raw.Paras[0]
		}
		docs = append(docs, ingestion.Document{
			ID:    id,
			Title: strings.TrimSpace(raw.Headline),
			Text:  text,
		})
	}
	return docs, nil
}
