// Package embeddings defines the text embedding contract used by the dense
// retrieval path.
package embeddings

import "context"

// Embedder converts text into a fixed-dimension vector. Implementations must
// be deterministic for identical input, or indexed and queried vectors drift
// apart.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
