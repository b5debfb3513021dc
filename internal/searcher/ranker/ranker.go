package ranker

import (
	"fmt"
	"math"

	"github.com/searchlab/termindex/internal/indexer/index"
)

type Params struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

// Query is an ordered sequence of search terms.
type Query []string

// ScoreMap holds the BM25 score of every document matching at least one
// query term.
type ScoreMap map[string]float64

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Processor scores queries against a built index and length table. It only
// reads both structures and may be shared across goroutines.
type Processor struct {
	index   *index.InvertedIndex
	lengths *index.LengthTable
	params  Params
}

func NewProcessor(idx *index.InvertedIndex, lengths *index.LengthTable, params Params) *Processor {
	return &Processor{index: idx, lengths: lengths, params: params}
}

func (p *Processor) Params() Params {
	return p.params
}

// Score computes BM25 for every document sharing a term with query. Terms
// missing from the index contribute nothing. Terms are summed in query order
// and postings in DocID order so repeated runs produce identical floats.
func (p *Processor) Score(query Query) (ScoreMap, error) {
	scores := make(ScoreMap)
	n := p.lengths.DocumentCount()
	avgdl := p.lengths.AverageLength()

	for _, term := range query {
		postings, err := p.index.PostingList(term)
		if err != nil {
			continue
		}
		idf := IDF(n, len(postings))
		for _, posting := range postings {
			docLen, err := p.lengths.Length(posting.DocID)
			if err != nil {
				return nil, fmt.Errorf("scoring term %q: %w", term, err)
			}
			scores[posting.DocID] += idf * TermWeight(posting.Frequency, docLen, avgdl, p.params)
		}
	}
	return scores, nil
}

// Run scores each query independently. The i-th map belongs to queries[i].
func (p *Processor) Run(queries []Query) ([]ScoreMap, error) {
	results := make([]ScoreMap, len(queries))
	for i, q := range queries {
		scores, err := p.Score(q)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		results[i] = scores
	}
	return results, nil
}

// IDF is ln((n - df + 0.5)/(df + 0.5) + 1). It is not clamped; for
// df <= n it is never negative.
func IDF(n, df int) float64 {
	numerator := float64(n) - float64(df) + 0.5
	denominator := float64(df) + 0.5
	return math.Log(numerator/denominator + 1)
}

// TermWeight is the saturated, length-normalised term frequency component.
func TermWeight(tf, docLen int, avgdl float64, params Params) float64 {
	if avgdl == 0 {
		return 0
	}
	freq := float64(tf)
	lengthRatio := float64(docLen) / avgdl
	denominator := freq + params.K1*(1-params.B+params.B*lengthRatio)
	return (freq * (params.K1 + 1)) / denominator
}
