package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/searchlab/termindex/internal/indexer/index"
	apperrors "github.com/searchlab/termindex/pkg/errors"
)

// Document is a decoded index file. Frequencies is nil for files written
// in the documents format.
type Document struct {
	Format      Format
	Frequencies map[string]map[string]int
	Documents   map[string][]string
}

// Load opens an exported index file, decompressing it when the name ends
// in ".gz".
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, GzipSuffix) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	doc, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

// Decode reads an index document in either format. Mixing formats within
// one document is rejected.
func Decode(r io.Reader) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing index json: %v: %w", err, apperrors.ErrMalformedInput)
	}
	doc := &Document{Documents: make(map[string][]string, len(raw))}
	for term, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) == 0 {
			return nil, fmt.Errorf("term %q has no value: %w", term, apperrors.ErrMalformedInput)
		}
		var format Format
		switch value[0] {
		case '{':
			format = FormatFrequencies
		case '[':
			format = FormatDocuments
		default:
			return nil, fmt.Errorf("term %q: unexpected value %.20s: %w", term, value, apperrors.ErrMalformedInput)
		}
		if doc.Format == "" {
			doc.Format = format
		} else if doc.Format != format {
			return nil, fmt.Errorf("term %q mixes index formats: %w", term, apperrors.ErrMalformedInput)
		}

		if format == FormatFrequencies {
			var freqs map[string]int
			if err := json.Unmarshal(value, &freqs); err != nil {
				return nil, fmt.Errorf("term %q: %v: %w", term, err, apperrors.ErrMalformedInput)
			}
			if doc.Frequencies == nil {
				doc.Frequencies = make(map[string]map[string]int, len(raw))
			}
			doc.Frequencies[term] = freqs
			ids := make([]string, 0, len(freqs))
			for id := range freqs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			doc.Documents[term] = ids
			continue
		}
		var ids []string
		if err := json.Unmarshal(value, &ids); err != nil {
			return nil, fmt.Errorf("term %q: %v: %w", term, err, apperrors.ErrMalformedInput)
		}
		doc.Documents[term] = ids
	}
	if doc.Format == "" {
		doc.Format = FormatFrequencies
		doc.Frequencies = make(map[string]map[string]int)
	}
	return doc, nil
}

// LoadIndex reads a frequencies-format file back into an InvertedIndex.
func LoadIndex(path string) (*index.InvertedIndex, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	if doc.Format != FormatFrequencies {
		return nil, fmt.Errorf("%s has no term frequencies: %w", path, apperrors.ErrMalformedInput)
	}
	terms := make([]string, 0, len(doc.Frequencies))
	for term := range doc.Frequencies {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	entries := make([]index.TermEntry, 0, len(terms))
	for _, term := range terms {
		pl := make(index.PostingList, 0, len(doc.Frequencies[term]))
		for _, id := range doc.Documents[term] {
			pl = append(pl, index.Posting{DocID: id, Frequency: doc.Frequencies[term][id]})
		}
		entries = append(entries, index.TermEntry{Term: term, Postings: pl})
	}
	return index.FromSnapshot(entries)
}
