package rag_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/retrieval"
)

func TestRAG(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RAG Suite")
}

// stubSearcher returns canned results or a fixed error and records the
// limits it was asked for.
type stubSearcher struct {
	results []retrieval.ScoredResult
	err     error
	limits  []int
}

func (s *stubSearcher) Search(_ context.Context, _ string, limit int) ([]retrieval.ScoredResult, error) {
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}
