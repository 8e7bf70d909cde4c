package config

import (
	"github.com/civitaslabs/ordina/pkg/fusion"
	"github.com/civitaslabs/ordina/pkg/llm/ollama"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/session"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

const (
	defaultAPIListen       = ":8080"
	defaultClientAPITarget = "http://localhost:8080"

	defaultCorpusPath = "corpus.jsonl"

	defaultVectorProvider   = "qdrant"
	defaultVectorTarget     = "localhost:6334"
	defaultVectorCollection = "ordinances"

	defaultEmbeddingProvider = "ollama"
	defaultEmbeddingTarget   = "http://localhost:11434"
	defaultEmbeddingModel    = "nomic-embed-text"
	defaultEmbeddingDims     = 768

	defaultLLMProvider = "ollama"
	defaultLLMTarget   = "http://localhost:11434"

	defaultRetrievalTimeoutMS = 5000
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Corpus: CorpusConfig{
			Path: defaultCorpusPath,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDims,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultLLMTarget,
			Model:    ollama.DefaultModel,
		},
		Retrieval: RetrievalConfig{
			TopK:           rag.DefaultTopK,
			ExhaustiveTopK: rag.DefaultExhaustiveTopK,
			DenseWeight:    fusion.DefaultDenseWeight,
			SparseWeight:   fusion.DefaultSparseWeight,
			OnDenseFailure: string(rag.DegradeToSparse),
			TimeoutMS:      defaultRetrievalTimeoutMS,
			BM25K1:         sparse.DefaultK1,
			BM25B:          sparse.DefaultB,
		},
		Chat: ChatConfig{
			HistoryWindow:   session.DefaultWindow,
			MaxContextChars: rag.DefaultMaxContextChars,
		},
	}
}
