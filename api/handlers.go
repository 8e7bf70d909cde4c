package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/civitaslabs/ordina/pkg/corpus"
	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleIndexStats returns statistics about the sparse index.
func (s *Server) handleIndexStats(c *fiber.Ctx) error {
	stats, err := s.retriever.Stats()
	if err != nil {
		if errors.Is(err, sparse.ErrIndexUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "sparse index not built"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(stats)
}

// handleIndexRebuild rebuilds the sparse index from the corpus and swaps it
// in atomically. In-flight queries are unaffected until the swap.
func (s *Server) handleIndexRebuild(c *fiber.Ctx) error {
	stats, err := s.indexer.RebuildSparse(c.Context())
	if err != nil {
		if errors.Is(err, corpus.ErrEmptyCorpus) {
			return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: "corpus is empty"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(stats)
}
