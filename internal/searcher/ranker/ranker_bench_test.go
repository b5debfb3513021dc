package ranker

import (
	"fmt"
	"testing"

	"github.com/searchlab/termindex/internal/indexer/index"
)

// BenchmarkScore measures BM25 scoring for different posting-list sizes.
func BenchmarkScore(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			corpus := make(map[string][]string, numDocs)
			for i := 0; i < numDocs; i++ {
				doc := make([]string, 0, 12)
				for f := 0; f <= i%10; f++ {
					doc = append(doc, "search")
				}
				corpus[fmt.Sprintf("doc-%d", i)] = append(doc, "analytics")
			}
			p := NewProcessor(index.Build(corpus), index.BuildLengthTable(corpus), DefaultParams())
			q := Query{"search", "analytics"}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Score(q); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkScoreMultiTerm measures scoring with an increasing number of
// query terms.
func BenchmarkScoreMultiTerm(b *testing.B) {
	corpus := make(map[string][]string, 500)
	for i := 0; i < 500; i++ {
		doc := make([]string, 0, 10)
		for t := 0; t < 10; t++ {
			if (i+t)%3 != 0 {
				doc = append(doc, fmt.Sprintf("term%d", t))
			}
		}
		corpus[fmt.Sprintf("doc-%d", i)] = doc
	}
	p := NewProcessor(index.Build(corpus), index.BuildLengthTable(corpus), DefaultParams())

	for _, tc := range []int{1, 3, 5, 10} {
		b.Run(fmt.Sprintf("terms_%d", tc), func(b *testing.B) {
			q := make(Query, tc)
			for t := range q {
				q[t] = fmt.Sprintf("term%d", t)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := p.Score(q); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
