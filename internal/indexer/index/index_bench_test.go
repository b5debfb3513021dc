package index

import (
	"fmt"
	"testing"
)

var benchTerms = []string{"futebol", "clube", "cidade", "brasil", "historia", "musica", "estado", "rio"}

func benchCorpus(n int) map[string][]string {
	corpus := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		corpus[fmt.Sprintf("%d", i)] = []string{
			benchTerms[i%len(benchTerms)],
			benchTerms[(i+1)%len(benchTerms)],
			benchTerms[(i+3)%len(benchTerms)],
			benchTerms[i%len(benchTerms)],
		}
	}
	return corpus
}

func BenchmarkBuild(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		corpus := benchCorpus(size)
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Build(corpus)
			}
		})
	}
}

func BenchmarkPostingList(b *testing.B) {
	idx := Build(benchCorpus(10000))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.PostingList(benchTerms[i%len(benchTerms)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPostingListParallel(b *testing.B) {
	idx := Build(benchCorpus(10000))
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := idx.PostingList(benchTerms[i%len(benchTerms)]); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}

func BenchmarkSnapshot(b *testing.B) {
	idx := Build(benchCorpus(5000))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Snapshot()
	}
}
