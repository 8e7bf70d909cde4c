package corpus

import "context"

// Store provides read-only access to the document corpus.
// Implementations must be safe for concurrent readers.
type Store interface {
	// Get retrieves documents by ID. Unknown IDs are skipped, not errored;
	// the returned slice preserves the order of the found IDs.
	Get(ctx context.Context, ids ...string) ([]*Document, error)

	// All returns every document in the corpus in a stable order.
	All(ctx context.Context) ([]*Document, error)

	// Count returns the number of documents in the corpus.
	Count(ctx context.Context) (int, error)
}
