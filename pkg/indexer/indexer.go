// Package indexer builds the retrieval indexes from the document corpus:
// the in-process sparse index, rebuilt wholesale and swapped atomically,
// and the dense side, embedded document by document and upserted into the
// vector store.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/pkg/corpus"
	"github.com/civitaslabs/ordina/pkg/embeddings"
	"github.com/civitaslabs/ordina/pkg/sparse"
	"github.com/civitaslabs/ordina/pkg/vector"
)

// DefaultBatchSize is how many documents are embedded and upserted per
// vector-store call.
const DefaultBatchSize = 32

// Indexer rebuilds retrieval indexes from a corpus.
type Indexer struct {
	store     corpus.Store
	retriever *sparse.Retriever
	embedder  embeddings.Embedder
	driver    vector.Driver
	batchSize int
	logger    *zap.Logger
}

// NewIndexer creates an indexer. embedder and driver may be nil when only
// sparse rebuilds are needed.
func NewIndexer(store corpus.Store, retriever *sparse.Retriever, embedder embeddings.Embedder, driver vector.Driver, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		store:     store,
		retriever: retriever,
		embedder:  embedder,
		driver:    driver,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
}

// RebuildSparse rebuilds the sparse index from the full corpus and swaps it
// in atomically. In-flight queries keep reading the previous index until the
// swap completes.
func (i *Indexer) RebuildSparse(ctx context.Context) (sparse.Stats, error) {
	docs, err := i.store.All(ctx)
	if err != nil {
		return sparse.Stats{}, fmt.Errorf("loading corpus: %w", err)
	}
	if len(docs) == 0 {
		return sparse.Stats{}, corpus.ErrEmptyCorpus
	}

	stats := i.retriever.Rebuild(docs)
	i.logger.Info("sparse index rebuilt",
		zap.Int("documents", stats.Documents),
		zap.Int("terms", stats.Terms),
		zap.Float64("avg_doc_len", stats.AvgDocLen))

	return stats, nil
}

// ReindexDense embeds every corpus document and upserts the vectors into
// the vector store in batches. Returns the number of documents indexed.
func (i *Indexer) ReindexDense(ctx context.Context) (int, error) {
	if i.embedder == nil || i.driver == nil {
		return 0, errors.New("dense reindexing requires an embedder and a vector driver")
	}

	docs, err := i.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading corpus: %w", err)
	}
	if len(docs) == 0 {
		return 0, corpus.ErrEmptyCorpus
	}

	indexed := 0
	batch := make([]vector.Document, 0, i.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := i.driver.Add(ctx, batch); err != nil {
			return fmt.Errorf("upserting batch: %w", err)
		}
		indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, doc := range docs {
		embedding, err := i.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return indexed, fmt.Errorf("embedding document %q: %w", doc.ID, err)
		}

		batch = append(batch, vector.Document{ID: doc.ID, Embedding: embedding})
		if len(batch) == i.batchSize {
			if err := flush(); err != nil {
				return indexed, err
			}
		}
	}
	if err := flush(); err != nil {
		return indexed, err
	}

	i.logger.Info("dense index rebuilt", zap.Int("documents", indexed))
	return indexed, nil
}

// ReindexAll rebuilds the sparse index and the dense index.
func (i *Indexer) ReindexAll(ctx context.Context) (sparse.Stats, int, error) {
	stats, err := i.RebuildSparse(ctx)
	if err != nil {
		return sparse.Stats{}, 0, err
	}

	indexed, err := i.ReindexDense(ctx)
	if err != nil {
		return stats, indexed, err
	}

	return stats, indexed, nil
}
