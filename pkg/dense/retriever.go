// Package dense implements semantic retrieval: the query is embedded into
// the same vector space as the indexed ordinance chunks and the nearest
// neighbors are fetched from the external vector store.
package dense

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/pkg/embeddings"
	"github.com/civitaslabs/ordina/pkg/retrieval"
	"github.com/civitaslabs/ordina/pkg/vector"
)

// ErrUnavailable is returned when the embedding step or the vector store
// call fails. The orchestrator maps it to the degrade-or-fail policy.
var ErrUnavailable = errors.New("dense retrieval unavailable")

// Retriever performs similarity search via an embedder and a vector store.
type Retriever struct {
	embedder embeddings.Embedder
	store    vector.Driver
	logger   *zap.Logger
}

// NewRetriever creates a dense retriever from its two collaborators.
func NewRetriever(embedder embeddings.Embedder, store vector.Driver, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Search embeds the query and returns up to limit nearest neighbors as
// ScoredResults with similarity scores in [0,1], descending. Any failure in
// the embedding or store call surfaces as ErrUnavailable.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]retrieval.ScoredResult, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrUnavailable, err)
	}

	matches, err := r.store.Query(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vector store: %v", ErrUnavailable, err)
	}

	results := make([]retrieval.ScoredResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, retrieval.ScoredResult{
			DocID:  match.ID,
			Score:  clamp01(float64(match.Score)),
			Source: retrieval.SourceDense,
		})
	}

	r.logger.Debug("dense retrieval completed",
		zap.Int("results", len(results)),
		zap.Int("limit", limit),
	)
	return results, nil
}

// clamp01 enforces the [0,1] score contract at this boundary regardless of
// driver behavior.
func clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
