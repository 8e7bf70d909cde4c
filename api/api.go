package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/pkg/indexer"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

// Server is the API server for querying and maintaining the retrieval system
type Server struct {
	config       Config
	orchestrator *rag.Orchestrator
	retriever    *sparse.Retriever
	indexer      *indexer.Indexer
	logger       *zap.Logger
	app          *fiber.App
}

// NewServer creates a new API server.
// The orchestrator and indexer are injected so the CLI can share them with
// other components.
func NewServer(config Config, orchestrator *rag.Orchestrator, retriever *sparse.Retriever, idx *indexer.Indexer, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:       config,
		orchestrator: orchestrator,
		retriever:    retriever,
		indexer:      idx,
		logger:       logger,
		app:          app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/search", s.handleSearch)
	app.Post("/v1/chat", s.handleChat)
	app.Get("/v1/index/stats", s.handleIndexStats)
	app.Post("/v1/index/rebuild", s.handleIndexRebuild)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
