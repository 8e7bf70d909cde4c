// Package vector provides the interface to external vector stores holding
// the ordinance chunk embeddings.
package vector

import "context"

// Document represents a stored item with its embedding.
type Document struct {
	// ID is the corpus document identifier this embedding belongs to.
	ID string

	// Embedding is the vector representation of the document content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is a similarity in [0,1] where 1.0 means exact match.
	// Drivers are responsible for mapping their store's native scale.
	Score float32
}

// Driver handles storage and retrieval of vector embeddings. Ingestion-side
// writes (Add, Delete) are consumed by the upstream pipeline; the query path
// only uses Query and Ping.
type Driver interface {
	// Add stores documents with their embeddings, updating any document
	// that already exists under the same ID.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// ordered by descending similarity.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
