package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/civitaslabs/ordina/pkg/fusion"
	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional): number of fused results to return
//   - dense_weight, sparse_weight (optional, must be given together):
//     per-request fusion weight override; rejected unless they are
//     non-negative and sum to 1.0
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error: "query parameter is required",
		})
	}

	opts := rag.SearchOptions{}

	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		opts.TopK = parsed
	}

	weights, err := weightOverride(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	opts.Weights = weights

	output, err := s.orchestrator.Search(c.Context(), query, opts)
	if err != nil {
		if errors.Is(err, sparse.ErrIndexUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{
				Error: "sparse index not built",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(output)
}

// weightOverride parses the optional per-request fusion weights. Both
// parameters must be present together and pass validation.
func weightOverride(c *fiber.Ctx) (*fusion.Weights, error) {
	denseStr := c.Query("dense_weight")
	sparseStr := c.Query("sparse_weight")
	if denseStr == "" && sparseStr == "" {
		return nil, nil
	}
	if denseStr == "" || sparseStr == "" {
		return nil, errors.New("dense_weight and sparse_weight must be provided together")
	}

	dense, err := strconv.ParseFloat(denseStr, 64)
	if err != nil {
		return nil, errors.New("dense_weight must be a number")
	}
	sparseW, err := strconv.ParseFloat(sparseStr, 64)
	if err != nil {
		return nil, errors.New("sparse_weight must be a number")
	}

	weights := fusion.Weights{Dense: dense, Sparse: sparseW}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	return &weights, nil
}
