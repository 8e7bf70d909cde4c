package sparse

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/pkg/corpus"
	"github.com/civitaslabs/ordina/pkg/retrieval"
)

const (
	// DefaultK1 is the BM25 term-frequency saturation constant.
	DefaultK1 = 1.5

	// DefaultB is the BM25 document-length normalization constant.
	DefaultB = 0.75
)

// Params holds the tunable BM25 constants.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the documented BM25 defaults.
func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Retriever answers keyword queries against the current index snapshot.
// Queries are pure in-memory reads; Rebuild swaps in a freshly built index
// atomically, so concurrent searches always observe a consistent snapshot
// and in-flight reads are never corrupted.
type Retriever struct {
	params Params
	index  atomic.Pointer[Index]
	logger *zap.Logger
}

// NewRetriever creates a sparse retriever with no index loaded. Call Rebuild
// before serving queries.
func NewRetriever(params Params, logger *zap.Logger) *Retriever {
	if params.K1 == 0 {
		params.K1 = DefaultK1
	}
	if params.B == 0 {
		params.B = DefaultB
	}
	return &Retriever{
		params: params,
		logger: logger,
	}
}

// Rebuild constructs a new index from the document snapshot and swaps it in.
// Safe to call while searches are being served.
func (r *Retriever) Rebuild(docs []*corpus.Document) Stats {
	idx := BuildIndex(docs)
	r.index.Store(idx)

	stats := idx.Stats()
	r.logger.Info("sparse index rebuilt",
		zap.Int("documents", stats.Documents),
		zap.Int("terms", stats.Terms),
		zap.Float64("avg_doc_length", stats.AvgDocLen),
	)
	return stats
}

// Stats returns statistics for the current index snapshot, or an error when
// no index has been built.
func (r *Retriever) Stats() (Stats, error) {
	idx := r.index.Load()
	if idx == nil {
		return Stats{}, ErrIndexUnavailable
	}
	return idx.Stats(), nil
}

// Search scores every document containing at least one query term with BM25
// and returns the top results, highest score first. Ties are broken by
// ascending document ID so results are deterministic. Queries whose terms do
// not appear in the index return an empty, non-error result.
func (r *Retriever) Search(_ context.Context, query string, limit int) ([]retrieval.ScoredResult, error) {
	idx := r.index.Load()
	if idx == nil {
		return nil, ErrIndexUnavailable
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return []retrieval.ScoredResult{}, nil
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		postings := idx.Postings(term)
		if len(postings) == 0 {
			continue
		}

		idf := idfScore(idx.docCount, len(postings))
		for _, posting := range postings {
			tf := tfNorm(
				float64(posting.Frequency),
				float64(idx.DocLength(posting.DocID)),
				idx.avgDocLen,
				r.params,
			)
			scores[posting.DocID] += idf * tf
		}
	}

	results := make([]retrieval.ScoredResult, 0, len(scores))
	for docID, score := range scores {
		results = append(results, retrieval.ScoredResult{
			DocID: docID,
			// Round so tie-breaking is reproducible across platforms.
			Score:  math.Round(score*10000) / 10000,
			Source: retrieval.SourceSparse,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// idfScore computes ln((N - df + 0.5) / (df + 0.5) + 1), which stays
// positive even for terms present in most documents.
func idfScore(totalDocs, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

// tfNorm computes the BM25 term-frequency component with length
// normalization: tf*(k1+1) / (tf + k1*(1 - b + b*len/avglen)).
func tfNorm(termFreq, docLength, avgDocLen float64, p Params) float64 {
	if avgDocLen == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLen
	denominator := termFreq + p.K1*(1-p.B+p.B*lengthRatio)
	return (termFreq * (p.K1 + 1)) / denominator
}
