// Package index holds the read-only structures built from a tokenized corpus:
// the inverted index (token to per-document term frequency) and the document
// length table. Both are built once and never mutated afterwards, so they
// can be shared between goroutines without locking.
package index

import (
	"fmt"
	"sort"

	apperrors "github.com/searchlab/termindex/pkg/errors"
)

// InvertedIndex maps a token to the documents containing it and the number
// of occurrences in each. A token with no occurrences has no entry at all.
type InvertedIndex struct {
	index    map[string]map[string]int
	docCount int
}

// Build indexes every token occurrence of corpus. The result depends only
// on the corpus contents, not on map iteration order.
func Build(corpus map[string][]string) *InvertedIndex {
	idx := &InvertedIndex{
		index: make(map[string]map[string]int),
	}
	for docID, tokens := range corpus {
		for _, token := range tokens {
			idx.add(token, docID)
		}
		idx.docCount++
	}
	return idx
}

func (x *InvertedIndex) add(token, docID string) {
	docs, exists := x.index[token]
	if !exists {
		docs = make(map[string]int)
		x.index[token] = docs
	}
	if freq, seen := docs[docID]; seen {
		docs[docID] = freq + 1
	} else {
		docs[docID] = 1
	}
}

// Contains reports whether token occurs anywhere in the corpus.
func (x *InvertedIndex) Contains(token string) bool {
	_, ok := x.index[token]
	return ok
}

// Postings returns a copy of the docID to term frequency map for token.
func (x *InvertedIndex) Postings(token string) (map[string]int, error) {
	docs, ok := x.index[token]
	if !ok {
		return nil, fmt.Errorf("token %q: %w", token, apperrors.ErrNotFound)
	}
	out := make(map[string]int, len(docs))
	for docID, freq := range docs {
		out[docID] = freq
	}
	return out, nil
}

// PostingList returns the postings of token sorted by DocID.
func (x *InvertedIndex) PostingList(token string) (PostingList, error) {
	docs, ok := x.index[token]
	if !ok {
		return nil, fmt.Errorf("token %q: %w", token, apperrors.ErrNotFound)
	}
	return sortedPostings(docs), nil
}

// DocumentFrequency returns how many times token occurs in docID.
func (x *InvertedIndex) DocumentFrequency(token, docID string) (int, error) {
	docs, ok := x.index[token]
	if !ok {
		return 0, fmt.Errorf("token %q: %w", token, apperrors.ErrNotFound)
	}
	freq, ok := docs[docID]
	if !ok {
		return 0, fmt.Errorf("token %q in document %q: %w", token, docID, apperrors.ErrNotFound)
	}
	return freq, nil
}

// IndexFrequency returns the number of distinct documents containing token.
func (x *InvertedIndex) IndexFrequency(token string) (int, error) {
	docs, ok := x.index[token]
	if !ok {
		return 0, fmt.Errorf("token %q: %w", token, apperrors.ErrNotFound)
	}
	return len(docs), nil
}

// Terms returns the vocabulary in lexicographic order.
func (x *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(x.index))
	for term := range x.index {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// TermCount returns the vocabulary size.
func (x *InvertedIndex) TermCount() int {
	return len(x.index)
}

// DocCount returns the number of documents the index was built from,
// including documents that produced no tokens.
func (x *InvertedIndex) DocCount() int {
	return x.docCount
}

// Snapshot returns every term with its postings, both sorted, ready for
// export.
func (x *InvertedIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.index))
	for _, term := range x.Terms() {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(x.index[term]),
		})
	}
	return entries
}

// FromSnapshot rebuilds an index from exported entries. Postings with a
// non-positive frequency are rejected.
func FromSnapshot(entries []TermEntry) (*InvertedIndex, error) {
	idx := &InvertedIndex{
		index: make(map[string]map[string]int, len(entries)),
	}
	docs := make(map[string]struct{})
	for _, entry := range entries {
		if len(entry.Postings) == 0 {
			return nil, fmt.Errorf("term %q has no postings: %w", entry.Term, apperrors.ErrMalformedInput)
		}
		postings := make(map[string]int, len(entry.Postings))
		for _, p := range entry.Postings {
			if p.Frequency < 1 {
				return nil, fmt.Errorf("term %q document %q frequency %d: %w",
					entry.Term, p.DocID, p.Frequency, apperrors.ErrMalformedInput)
			}
			postings[p.DocID] = p.Frequency
			docs[p.DocID] = struct{}{}
		}
		idx.index[entry.Term] = postings
	}
	idx.docCount = len(docs)
	return idx, nil
}

func sortedPostings(docs map[string]int) PostingList {
	result := make(PostingList, 0, len(docs))
	for docID, freq := range docs {
		result = append(result, Posting{DocID: docID, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}
