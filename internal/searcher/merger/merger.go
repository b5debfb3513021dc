package merger

import (
	"container/heap"
	"sort"

	"github.com/searchlab/termindex/internal/searcher/ranker"
)

// TopK returns the k best documents of scores ordered by score descending,
// DocID ascending on ties. k <= 0 returns every document.
func TopK(scores ranker.ScoreMap, k int) []ranker.ScoredDoc {
	if k <= 0 || k >= len(scores) {
		return sortAll(scores)
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for docID, score := range scores {
		heap.Push(h, ranker.ScoredDoc{DocID: docID, Score: score})
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.ScoredDoc)
	}
	return result
}

func sortAll(scores ranker.ScoreMap) []ranker.ScoredDoc {
	result := make([]ranker.ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ranker.ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		return ranksBefore(result[i], result[j])
	})
	return result
}

func ranksBefore(a, b ranker.ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// scoredDocHeap is a min-heap on rank: the root is the worst kept document.
type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	return ranksBefore(h[j], h[i])
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
