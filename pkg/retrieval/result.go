// Package retrieval defines the common result currency passed between the
// sparse and dense retrievers and the fusion engine.
package retrieval

// Source identifies which retriever produced a score.
type Source string

const (
	// SourceDense marks results from vector-similarity search.
	SourceDense Source = "dense"

	// SourceSparse marks results from the in-process keyword index.
	SourceSparse Source = "sparse"

	// SourceHybrid marks results produced by fusing both retrievers.
	SourceHybrid Source = "hybrid"
)

// ScoredResult is a (document, score, source) triple. Instances are created
// per query and discarded after response assembly; the document itself is
// referenced by identifier only.
type ScoredResult struct {
	// DocID is the identifier of the matched document in the corpus.
	DocID string `json:"doc_id"`

	// Score is the retriever-native relevance score. Sparse scores are BM25
	// values (unbounded), dense scores are similarities in [0,1]. The two are
	// on incomparable scales until fusion normalizes them.
	Score float64 `json:"score"`

	// Source tags the retriever that produced this result.
	Source Source `json:"source"`
}
