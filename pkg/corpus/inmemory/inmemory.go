// Package inmemory provides an in-memory corpus.Store backed by a map.
// The corpus is immutable after construction, so reads need no locking.
package inmemory

import (
	"context"

	"github.com/civitaslabs/ordina/pkg/corpus"
)

// Store implements corpus.Store over an in-memory document collection.
type Store struct {
	byID    map[string]*corpus.Document
	ordered []*corpus.Document
}

// NewStore creates a store over the given documents. Later duplicates of an
// ID silently win; loaders are expected to reject duplicates before this
// point.
func NewStore(docs []*corpus.Document) *Store {
	byID := make(map[string]*corpus.Document, len(docs))
	ordered := make([]*corpus.Document, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		byID[doc.ID] = doc
		ordered = append(ordered, doc)
	}
	return &Store{byID: byID, ordered: ordered}
}

// Get retrieves documents by ID, skipping unknown IDs.
func (s *Store) Get(_ context.Context, ids ...string) ([]*corpus.Document, error) {
	found := make([]*corpus.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := s.byID[id]; ok {
			found = append(found, doc)
		}
	}
	return found, nil
}

// All returns every document in load order.
func (s *Store) All(_ context.Context) ([]*corpus.Document, error) {
	out := make([]*corpus.Document, len(s.ordered))
	copy(out, s.ordered)
	return out, nil
}

// Count returns the number of documents.
func (s *Store) Count(_ context.Context) (int, error) {
	return len(s.ordered), nil
}

var _ corpus.Store = (*Store)(nil)
