// Package fusion merges the dense and sparse result lists into one ranking.
//
// BM25 scores and cosine similarities live on incomparable scales, so each
// source is min-max normalized to [0,1] within its own result set before the
// configured weights are applied. Without that per-query normalization the
// weighting would have no defined meaning.
package fusion

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/civitaslabs/ordina/pkg/retrieval"
)

const (
	// DefaultDenseWeight is the default share of the dense score.
	DefaultDenseWeight = 0.7

	// DefaultSparseWeight is the default share of the sparse score.
	DefaultSparseWeight = 0.3

	// weightSumTolerance absorbs float formatting noise in configs.
	weightSumTolerance = 1e-6
)

// ErrInvalidWeights is returned when weights are negative or do not sum
// to 1.0. Weights are rejected at configuration time, never at query time.
var ErrInvalidWeights = errors.New("invalid fusion weights")

// Weights holds the dense/sparse split applied after normalization.
type Weights struct {
	Dense  float64 `json:"dense" toml:"dense"`
	Sparse float64 `json:"sparse" toml:"sparse"`
}

// DefaultWeights returns the documented 70/30 dense/sparse split.
func DefaultWeights() Weights {
	return Weights{Dense: DefaultDenseWeight, Sparse: DefaultSparseWeight}
}

// Validate rejects negative weights and weights that do not sum to 1.0.
func (w Weights) Validate() error {
	if w.Dense < 0 || w.Sparse < 0 {
		return fmt.Errorf("%w: weights must be non-negative (dense=%v sparse=%v)",
			ErrInvalidWeights, w.Dense, w.Sparse)
	}
	if math.Abs(w.Dense+w.Sparse-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0 (dense=%v sparse=%v)",
			ErrInvalidWeights, w.Dense, w.Sparse)
	}
	return nil
}

// Result is one fused ranking entry with its combined score and the
// per-source normalized components that produced it.
type Result struct {
	DocID       string  `json:"doc_id"`
	Score       float64 `json:"score"`
	DenseScore  float64 `json:"dense_score"`
	SparseScore float64 `json:"sparse_score"`
}

// Fuse combines the two result lists under the given weights and returns the
// top-K entries sorted by combined score descending, ties broken by document
// ID ascending. Either input may be nil or empty; a document absent from one
// source contributes 0 from that source. Fuse never fails: callers validate
// weights before queries begin, and two empty inputs produce an empty
// (non-error) output.
func Fuse(dense, sparse []retrieval.ScoredResult, w Weights, topK int) []Result {
	denseNorm := normalize(dense)
	sparseNorm := normalize(sparse)

	combined := make(map[string]*Result, len(denseNorm)+len(sparseNorm))
	for docID, score := range denseNorm {
		combined[docID] = &Result{
			DocID:      docID,
			Score:      w.Dense * score,
			DenseScore: score,
		}
	}
	for docID, score := range sparseNorm {
		entry, ok := combined[docID]
		if !ok {
			entry = &Result{DocID: docID}
			combined[docID] = entry
		}
		entry.SparseScore = score
		entry.Score += w.Sparse * score
	}

	results := make([]Result, 0, len(combined))
	for _, entry := range combined {
		results = append(results, *entry)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// normalize min-max scales one source's scores to [0,1] keyed by document
// ID. When every score is identical the whole set maps to 1.0, matching a
// single perfect band rather than discarding the source.
func normalize(results []retrieval.ScoredResult) map[string]float64 {
	if len(results) == 0 {
		return map[string]float64{}
	}

	minScore := results[0].Score
	maxScore := results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	scoreRange := maxScore - minScore
	normalized := make(map[string]float64, len(results))
	for _, r := range results {
		if scoreRange > 0 {
			normalized[r.DocID] = (r.Score - minScore) / scoreRange
		} else {
			normalized[r.DocID] = 1.0
		}
	}
	return normalized
}
