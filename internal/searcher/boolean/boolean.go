// Package boolean implements exact set retrieval over single-term posting
// sets. A Result holds the documents containing one term, frequencies
// discarded, and results combine with Intersect (AND) and Union (OR).
package boolean

import (
	"fmt"
	"sort"

	"github.com/searchlab/termindex/internal/indexer/tokenizer"
)

// DocSet is a set of document IDs.
type DocSet map[string]struct{}

// NewDocSet builds a set from ids.
func NewDocSet(ids ...string) DocSet {
	s := make(DocSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s DocSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s DocSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equal reports whether both sets have the same members.
func (s DocSet) Equal(other DocSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// PostingSource is the part of the inverted index boolean search reads.
type PostingSource interface {
	Postings(token string) (map[string]int, error)
}

// Result is the document set of one search term.
type Result struct {
	Term string
	Docs DocSet
}

// Search looks up term (lower-cased) and keeps the IDs of the documents that
// contain it. An unknown term is an error wrapping ErrNotFound.
func Search(term string, idx PostingSource) (*Result, error) {
	normalized := tokenizer.Normalize(term)
	postings, err := idx.Postings(normalized)
	if err != nil {
		return nil, fmt.Errorf("boolean search: %w", err)
	}
	docs := make(DocSet, len(postings))
	for docID := range postings {
		docs[docID] = struct{}{}
	}
	return &Result{Term: normalized, Docs: docs}, nil
}

// And intersects the document sets of r and other.
func (r *Result) And(other *Result) DocSet {
	return Intersect(r.Docs, other.Docs)
}

// Or unions the document sets of r and other.
func (r *Result) Or(other *Result) DocSet {
	return Union(r.Docs, other.Docs)
}

func (r *Result) String() string {
	return fmt.Sprintf("%s -> %v", r.Term, r.Docs.Sorted())
}

// Intersect returns the documents present in both sets. It walks the
// smaller set.
func Intersect(a, b DocSet) DocSet {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(DocSet, len(a))
	for id := range a {
		if b.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union returns the documents present in either set.
func Union(a, b DocSet) DocSet {
	out := make(DocSet, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}
