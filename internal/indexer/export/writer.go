// Package export persists an inverted index as a JSON document and reads it
// back. Tokens are written in lexicographic order, each mapping either to a
// docID to frequency object or to a sorted list of docIDs. Files can be gzip
// compressed, in which case ".gz" follows the ".json" suffix.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/searchlab/termindex/internal/indexer/index"
)

const (
	JSONSuffix = ".json"
	GzipSuffix = ".gz"
)

// Format selects what each token maps to in the exported document.
type Format string

const (
	FormatFrequencies Format = "frequencies"
	FormatDocuments   Format = "documents"
)

// ParseFormat validates a format name from configuration or flags.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatFrequencies, FormatDocuments:
		return Format(name), nil
	case "":
		return FormatFrequencies, nil
	default:
		return "", fmt.Errorf("unknown export format %q", name)
	}
}

// Options controls how an index is written.
type Options struct {
	Format     Format
	Compressed bool
}

// FilePath returns the path the index is written to for the given base name.
func FilePath(base string, compressed bool) string {
	path := base + JSONSuffix
	if compressed {
		path += GzipSuffix
	}
	return path
}

// Writer serialises term entries into JSON index files.
type Writer struct {
	opts Options
}

// NewWriter creates a Writer with the given options.
func NewWriter(opts Options) *Writer {
	if opts.Format == "" {
		opts.Format = FormatFrequencies
	}
	return &Writer{opts: opts}
}

// Write atomically creates the index file for base from entries, which must
// already be sorted by term. It writes to a .tmp file first and renames on
// success. The final path is returned.
func (w *Writer) Write(base string, entries []index.TermEntry) (string, error) {
	finalPath := FilePath(base, w.opts.Compressed)
	tmpPath := finalPath + ".tmp"

	if dir := filepath.Dir(finalPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating export directory: %w", err)
		}
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp index file: %w", err)
	}

	if err := w.encode(f, entries); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming index file: %w", err)
	}
	return finalPath, nil
}

func (w *Writer) encode(f io.Writer, entries []index.TermEntry) error {
	buf := bufio.NewWriter(f)
	var out io.Writer = buf
	var gz *gzip.Writer
	if w.opts.Compressed {
		gz = gzip.NewWriter(buf)
		out = gz
	}
	if err := WriteTo(out, entries, w.opts.Format); err != nil {
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flushing index file: %w", err)
	}
	return nil
}

// WriteTo encodes entries to out in the given format. Keys are emitted in
// the order of entries, so callers pass sorted entries for stable output.
func WriteTo(out io.Writer, entries []index.TermEntry, format Format) error {
	if _, err := io.WriteString(out, "{"); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	for i, entry := range entries {
		key, err := marshal(entry.Term)
		if err != nil {
			return fmt.Errorf("marshaling term %q: %w", entry.Term, err)
		}
		var value []byte
		switch format {
		case FormatDocuments:
			value, err = marshalIndented(entry.Postings.DocIDs())
		default:
			value, err = marshalIndented(frequencyMap(entry.Postings))
		}
		if err != nil {
			return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		sep := ","
		if i == 0 {
			sep = ""
		}
		if _, err := fmt.Fprintf(out, "%s\n    %s: %s", sep, key, value); err != nil {
			return fmt.Errorf("writing term %q: %w", entry.Term, err)
		}
	}
	closing := "\n}\n"
	if len(entries) == 0 {
		closing = "}\n"
	}
	if _, err := io.WriteString(out, closing); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

func frequencyMap(pl index.PostingList) map[string]int {
	m := make(map[string]int, len(pl))
	for _, p := range pl {
		m[p.DocID] = p.Frequency
	}
	return m
}

// marshal encodes v without escaping non-ASCII or HTML characters.
func marshal(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}

// marshalIndented encodes a nested value at the second indentation level.
func marshalIndented(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("    ", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}
