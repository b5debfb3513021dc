package index

import (
	"fmt"
	"sort"

	apperrors "github.com/searchlab/termindex/pkg/errors"
)

// LengthTable records the token count of every document together with the
// running corpus average. The average is updated incrementally on each Add
// and always equals sum(lengths)/count.
type LengthTable struct {
	lengths map[string]int
	average float64
}

func NewLengthTable() *LengthTable {
	return &LengthTable{lengths: make(map[string]int)}
}

// BuildLengthTable records the length of every document in corpus. Documents
// are added in docID order so the running average is bit-for-bit stable
// across builds.
func BuildLengthTable(corpus map[string][]string) *LengthTable {
	docIDs := make([]string, 0, len(corpus))
	for docID := range corpus {
		docIDs = append(docIDs, docID)
	}
	sort.Strings(docIDs)

	t := NewLengthTable()
	for _, docID := range docIDs {
		// corpus keys are unique, Add cannot fail here
		_ = t.Add(docID, len(corpus[docID]))
	}
	return t
}

// Add records a document length. A docID may be added only once.
func (t *LengthTable) Add(docID string, length int) error {
	if _, exists := t.lengths[docID]; exists {
		return fmt.Errorf("document %q already has a length: %w", docID, apperrors.ErrMalformedInput)
	}
	t.lengths[docID] = length
	t.average += (float64(length) - t.average) / float64(len(t.lengths))
	return nil
}

// Length returns the token count of docID.
func (t *LengthTable) Length(docID string) (int, error) {
	length, ok := t.lengths[docID]
	if !ok {
		return 0, fmt.Errorf("document %q: %w", docID, apperrors.ErrNotFound)
	}
	return length, nil
}

// AverageLength returns the mean document length, or 0 when empty.
func (t *LengthTable) AverageLength() float64 {
	return t.average
}

// DocumentCount returns the number of documents recorded.
func (t *LengthTable) DocumentCount() int {
	return len(t.lengths)
}
