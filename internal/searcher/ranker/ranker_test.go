package ranker

import (
	"math"
	"reflect"
	"testing"

	"github.com/searchlab/termindex/internal/indexer/index"
)

func newProcessor(corpus map[string][]string) *Processor {
	return NewProcessor(index.Build(corpus), index.BuildLengthTable(corpus), DefaultParams())
}

func petsCorpus() map[string][]string {
	return map[string][]string{
		"doc1": {"gato", "cachorro", "gato"},
		"doc2": {"cachorro", "passaro"},
	}
}

func TestScoreRanksDocumentWithBothTerms(t *testing.T) {
	p := newProcessor(petsCorpus())
	scores, err := p.Score(Query{"gato", "cachorro"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("got %d scored docs, want 2", len(scores))
	}
	if scores["doc1"] <= scores["doc2"] {
		t.Errorf("doc1 = %v, doc2 = %v; want doc1 > doc2", scores["doc1"], scores["doc2"])
	}

	// gato: idf ln(2), cachorro: idf ln(1.2)
	wantDoc1 := math.Log(2)*(2*2.5)/(2+1.5*(0.25+0.75*3/2.5)) +
		math.Log(1.2)*(1*2.5)/(1+1.5*(0.25+0.75*3/2.5))
	wantDoc2 := math.Log(1.2) * (1 * 2.5) / (1 + 1.5*(0.25+0.75*2/2.5))
	if math.Abs(scores["doc1"]-wantDoc1) > 1e-9 {
		t.Errorf("doc1 = %v, want %v", scores["doc1"], wantDoc1)
	}
	if math.Abs(scores["doc2"]-wantDoc2) > 1e-9 {
		t.Errorf("doc2 = %v, want %v", scores["doc2"], wantDoc2)
	}
}

func TestScoreAbsentTerm(t *testing.T) {
	p := newProcessor(petsCorpus())
	scores, err := p.Score(Query{"elefante"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("Score(elefante) = %v, want empty", scores)
	}

	mixed, err := p.Score(Query{"elefante", "passaro"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if _, ok := mixed["doc1"]; ok || len(mixed) != 1 {
		t.Errorf("Score(elefante passaro) = %v, want only doc2", mixed)
	}
}

func TestScoreCandidatesAreUnionOfPostings(t *testing.T) {
	p := newProcessor(map[string][]string{
		"a": {"x", "y"},
		"b": {"y"},
		"c": {"z"},
	})
	scores, err := p.Score(Query{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := scores["c"]; ok {
		t.Error("document without query terms was scored")
	}
	if len(scores) != 2 {
		t.Errorf("got %v, want docs a and b", scores)
	}
}

func TestScoreDeterministic(t *testing.T) {
	corpus := map[string][]string{}
	for i := 0; i < 50; i++ {
		doc := make([]string, 0, i+1)
		for j := 0; j <= i; j++ {
			doc = append(doc, []string{"alpha", "beta", "gamma", "delta"}[j%4])
		}
		corpus[string(rune('A'+i%26))+string(rune('a'+i/26))] = doc
	}
	p := newProcessor(corpus)
	q := Query{"gamma", "alpha", "delta"}
	first, err := p.Score(q)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, _ := p.Score(q)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("repeated Score() calls differ")
		}
	}
}

func TestRunIndependentQueries(t *testing.T) {
	p := newProcessor(petsCorpus())
	queries := []Query{{"gato"}, {"elefante"}, {"cachorro", "passaro"}}
	results, err := p.Run(queries)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != len(queries) {
		t.Fatalf("got %d results, want %d", len(results), len(queries))
	}
	for i, q := range queries {
		single, _ := p.Score(q)
		if !reflect.DeepEqual(results[i], single) {
			t.Errorf("results[%d] = %v, want %v", i, results[i], single)
		}
	}
}

func TestTermWeightMonotonicInTF(t *testing.T) {
	for _, b := range []float64{0, 0.25, 0.75, 1} {
		for _, docLen := range []int{1, 10, 100} {
			params := Params{K1: 1.5, B: b}
			prev := TermWeight(0, docLen, 20, params)
			for tf := 1; tf <= 100; tf++ {
				w := TermWeight(tf, docLen, 20, params)
				if w < prev {
					t.Fatalf("b=%v len=%d: weight(tf=%d)=%v < weight(tf=%d)=%v", b, docLen, tf, w, tf-1, prev)
				}
				prev = w
			}
		}
	}
}

func TestTermWeightZeroAverage(t *testing.T) {
	if w := TermWeight(3, 0, 0, DefaultParams()); w != 0 {
		t.Errorf("TermWeight with avgdl 0 = %v, want 0", w)
	}
}

func TestIDFMonotonic(t *testing.T) {
	const n = 1000
	prev := IDF(n, 1)
	for df := 2; df <= n; df++ {
		idf := IDF(n, df)
		if idf > prev {
			t.Fatalf("IDF(df=%d)=%v > IDF(df=%d)=%v", df, idf, df-1, prev)
		}
		if idf < 0 {
			t.Fatalf("IDF(df=%d) = %v is negative", df, idf)
		}
		prev = idf
	}
}

func TestIDFMonotonicAcrossIndex(t *testing.T) {
	corpus := map[string][]string{
		"1": {"rare", "common"},
		"2": {"common"},
		"3": {"common"},
	}
	idx := index.Build(corpus)
	rareDF, _ := idx.IndexFrequency("rare")
	commonDF, _ := idx.IndexFrequency("common")
	if IDF(3, rareDF) < IDF(3, commonDF) {
		t.Error("rarer term has lower IDF")
	}
}
