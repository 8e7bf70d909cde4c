// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/api"
	"github.com/civitaslabs/ordina/pkg/config"
	"github.com/civitaslabs/ordina/pkg/corpus"
	"github.com/civitaslabs/ordina/pkg/corpus/inmemory"
	"github.com/civitaslabs/ordina/pkg/dense"
	"github.com/civitaslabs/ordina/pkg/embeddings"
	embollama "github.com/civitaslabs/ordina/pkg/embeddings/ollama"
	"github.com/civitaslabs/ordina/pkg/fusion"
	"github.com/civitaslabs/ordina/pkg/indexer"
	"github.com/civitaslabs/ordina/pkg/llm"
	llmollama "github.com/civitaslabs/ordina/pkg/llm/ollama"
	"github.com/civitaslabs/ordina/pkg/llm/openai"
	"github.com/civitaslabs/ordina/pkg/logger"
	"github.com/civitaslabs/ordina/pkg/moderation"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/session"
	"github.com/civitaslabs/ordina/pkg/sparse"
	"github.com/civitaslabs/ordina/pkg/vector"
	"github.com/civitaslabs/ordina/pkg/vector/chroma"
	"github.com/civitaslabs/ordina/pkg/vector/qdrant"
)

type serveCommander struct {
	cfg    *config.Config
	debug  bool
	logger *zap.Logger
}

const serveLongDesc string = `Run the ordina API server.

Loads the document corpus, builds the keyword index, connects to the
vector store and embedding service, and serves search and chat requests.

If the vector store or embedder is unreachable at startup the server still
comes up: queries are served per the configured degradation policy
(retrieval.on_dense_failure) with the dense side disabled.

Examples:
  ordina serve
  ordina serve --api-listen :9090 --corpus-path ./data/corpus.jsonl
  ORDINA_VECTOR_STORE_TARGET=qdrant.example.com:6334 ordina serve`

const serveShortDesc string = "Run the ordina API server"

var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "api-listen", Shorthand: "a", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagCorpusPath: {
		Name: "corpus-path", Shorthand: "c", ViperKey: "corpus.path",
		Description: "Path to the JSONL document corpus",
	},
	config.FlagVectorProvider: {
		Name: "vector-store-provider", ViperKey: "vector_store.provider",
		Description: "Vector store provider (qdrant, chroma)",
	},
	config.FlagVectorTarget: {
		Name: "vector-store-target", ViperKey: "vector_store.target",
		Description: "Vector store target (host:port for qdrant, URL for chroma)",
	},
	config.FlagEmbeddingTgt: {
		Name: "embedding-target", ViperKey: "embedding.target",
		Description: "Embedding service URL",
	},
	config.FlagEmbeddingModel: {
		Name: "embedding-model", ViperKey: "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagLLMProvider: {
		Name: "llm-provider", ViperKey: "llm.provider",
		Description: "Answer generation provider (ollama, openai)",
	},
	config.FlagLLMModel: {
		Name: "model", Shorthand: "m", ViperKey: "llm.model",
		Description: "Answer generation model name",
	},
	config.FlagTopK: {
		Name: "top-k", Shorthand: "k", ViperKey: "retrieval.top_k",
		Description: "Number of fused results per query",
	},
	config.FlagDenseWeight: {
		Name: "dense-weight", ViperKey: "retrieval.dense_weight",
		Description: "Fusion weight for dense results (must sum to 1.0 with --sparse-weight)",
	},
	config.FlagSparseWeight: {
		Name: "sparse-weight", ViperKey: "retrieval.sparse_weight",
		Description: "Fusion weight for sparse results (must sum to 1.0 with --dense-weight)",
	},
	config.FlagOnDenseFailure: {
		Name: "on-dense-failure", ViperKey: "retrieval.on_dense_failure",
		Description: "Policy when dense retrieval fails (degrade, fail)",
	},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagCorpusPath,
	config.FlagVectorProvider,
	config.FlagVectorTarget,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagTopK,
	config.FlagDenseWeight,
	config.FlagSparseWeight,
	config.FlagOnDenseFailure,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	var flagTargets struct {
		apiListen      string
		corpusPath     string
		vectorProvider string
		vectorTarget   string
		embeddingTgt   string
		embeddingModel string
		llmProvider    string
		llmModel       string
		topK           int
		denseWeight    float64
		sparseWeight   float64
		onDenseFailure string
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &flagTargets.apiListen)
	config.AddStringFlag(cmd, serveFlags, config.FlagCorpusPath, &flagTargets.corpusPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorProvider, &flagTargets.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorTarget, &flagTargets.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &flagTargets.embeddingTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &flagTargets.embeddingModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProvider, &flagTargets.llmProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMModel, &flagTargets.llmModel)
	config.AddIntFlag(cmd, serveFlags, config.FlagTopK, &flagTargets.topK)
	config.AddFloatFlag(cmd, serveFlags, config.FlagDenseWeight, &flagTargets.denseWeight)
	config.AddFloatFlag(cmd, serveFlags, config.FlagSparseWeight, &flagTargets.sparseWeight)
	config.AddStringFlag(cmd, serveFlags, config.FlagOnDenseFailure, &flagTargets.onDenseFailure)

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfg := c.cfg

	// Corpus and sparse index. Both retrievers read the same collection.
	store, err := LoadCorpus(cfg)
	if err != nil {
		return err
	}

	retriever := sparse.NewRetriever(sparse.Params{K1: cfg.Retrieval.BM25K1, B: cfg.Retrieval.BM25B}, c.logger)

	docs, err := store.All(context.Background())
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	stats := retriever.Rebuild(docs)
	c.logger.Info("sparse index built",
		zap.Int("documents", stats.Documents),
		zap.Int("terms", stats.Terms),
	)

	// Dense side. Startup survives an unreachable collaborator; the
	// degradation policy covers it at query time.
	var denseSearcher rag.Searcher
	var embedder embeddings.Embedder
	var driver vector.Driver

	driver, err = BuildVectorDriver(cfg, c.logger)
	if err != nil {
		c.logger.Warn("vector store unavailable, dense retrieval disabled", zap.Error(err))
		driver = nil
	}
	embedder, err = BuildEmbedder(cfg)
	if err != nil {
		c.logger.Warn("embedder unavailable, dense retrieval disabled", zap.Error(err))
		embedder = nil
	}
	if driver != nil && embedder != nil {
		denseSearcher = dense.NewRetriever(embedder, driver, c.logger)
	}
	if driver != nil {
		defer driver.Close()
	}
	if embedder != nil {
		defer embedder.Close()
	}

	generator, err := BuildGenerator(cfg)
	if err != nil {
		return err
	}
	defer generator.Close()

	orchestrator, err := rag.NewOrchestrator(
		rag.Config{
			TopK:             cfg.Retrieval.TopK,
			ExhaustiveTopK:   cfg.Retrieval.ExhaustiveTopK,
			Weights:          fusion.Weights{Dense: cfg.Retrieval.DenseWeight, Sparse: cfg.Retrieval.SparseWeight},
			RetrievalTimeout: time.Duration(cfg.Retrieval.TimeoutMS) * time.Millisecond,
			OnDenseFailure:   rag.DenseFailurePolicy(cfg.Retrieval.OnDenseFailure),
			MaxContextChars:  cfg.Chat.MaxContextChars,
			Model:            cfg.LLM.Model,
		},
		retriever,
		denseSearcher,
		store,
		session.NewStore(cfg.Chat.HistoryWindow),
		generator,
		moderation.NewChecker(nil),
		nil,
		c.logger,
	)
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	idx := indexer.NewIndexer(store, retriever, embedder, driver, c.logger)

	apiServer := api.NewServer(api.Config{ListenAddr: cfg.API.Listen}, orchestrator, retriever, idx, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

// LoadCorpus loads the JSONL corpus named by the config into an in-memory
// store. Exported so reindex can reuse it.
func LoadCorpus(cfg *config.Config) (corpus.Store, error) {
	docs, err := corpus.LoadJSONL(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("loading corpus from %s: %w", cfg.Corpus.Path, err)
	}
	return inmemory.NewStore(docs), nil
}

// BuildVectorDriver constructs the configured vector store driver.
func BuildVectorDriver(cfg *config.Config, log *zap.Logger) (vector.Driver, error) {
	switch cfg.VectorStore.Provider {
	case "qdrant":
		host, port, err := splitHostPort(cfg.VectorStore.Target)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant target %q: %w", cfg.VectorStore.Target, err)
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:       host,
			Port:       port,
			APIKey:     cfg.VectorStore.APIKey,
			UseTLS:     cfg.VectorStore.UseTLS,
			Collection: cfg.VectorStore.Collection,
		}, log)

	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            cfg.VectorStore.Target,
			CollectionName: cfg.VectorStore.Collection,
		}, log)

	default:
		return nil, fmt.Errorf("unknown vector store provider: %q (available: qdrant, chroma)", cfg.VectorStore.Provider)
	}
}

// BuildEmbedder constructs the configured embedder.
func BuildEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return embollama.NewEmbedder(embollama.Config{
			BaseURL:    cfg.Embedding.Target,
			Model:      cfg.Embedding.Model,
			Dimensions: int(cfg.Embedding.Dimensions),
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider: %q (available: ollama)", cfg.Embedding.Provider)
	}
}

// BuildGenerator constructs the configured answer generator.
func BuildGenerator(cfg *config.Config) (llm.Generator, error) {
	switch cfg.LLM.Provider {
	case "ollama":
		return llmollama.NewGenerator(llmollama.Config{
			BaseURL: cfg.LLM.Target,
			Model:   cfg.LLM.Model,
		})

	case "openai":
		return openai.NewGenerator(openai.Config{
			BaseURL: cfg.LLM.Target,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})

	default:
		return nil, fmt.Errorf("unknown llm provider: %q (available: ollama, openai)", cfg.LLM.Provider)
	}
}

func splitHostPort(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
