package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/civitaslabs/ordina/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ORDINA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ORDINA_API_LISTEN, ORDINA_RETRIEVAL_TOP_K, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: ORDINA_API_LISTEN, ORDINA_LLM_API_KEY, etc.
	v.SetEnvPrefix("ORDINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Corpus
	v.SetDefault("corpus.path", d.Corpus.Path)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.api_key", d.VectorStore.APIKey)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)
	v.SetDefault("vector_store.use_tls", d.VectorStore.UseTLS)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)

	// Retrieval
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.exhaustive_top_k", d.Retrieval.ExhaustiveTopK)
	v.SetDefault("retrieval.dense_weight", d.Retrieval.DenseWeight)
	v.SetDefault("retrieval.sparse_weight", d.Retrieval.SparseWeight)
	v.SetDefault("retrieval.on_dense_failure", d.Retrieval.OnDenseFailure)
	v.SetDefault("retrieval.timeout_ms", d.Retrieval.TimeoutMS)
	v.SetDefault("retrieval.bm25_k1", d.Retrieval.BM25K1)
	v.SetDefault("retrieval.bm25_b", d.Retrieval.BM25B)

	// Chat
	v.SetDefault("chat.history_window", d.Chat.HistoryWindow)
	v.SetDefault("chat.max_context_chars", d.Chat.MaxContextChars)
}

// FromViper materializes a Config from the viper precedence chain and
// validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		Corpus: CorpusConfig{
			Path: v.GetString("corpus.path"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			APIKey:     v.GetString("vector_store.api_key"),
			Collection: v.GetString("vector_store.collection"),
			UseTLS:     v.GetBool("vector_store.use_tls"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			Target:   v.GetString("llm.target"),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
		},
		Retrieval: RetrievalConfig{
			TopK:           v.GetInt("retrieval.top_k"),
			ExhaustiveTopK: v.GetInt("retrieval.exhaustive_top_k"),
			DenseWeight:    v.GetFloat64("retrieval.dense_weight"),
			SparseWeight:   v.GetFloat64("retrieval.sparse_weight"),
			OnDenseFailure: v.GetString("retrieval.on_dense_failure"),
			TimeoutMS:      v.GetInt("retrieval.timeout_ms"),
			BM25K1:         v.GetFloat64("retrieval.bm25_k1"),
			BM25B:          v.GetFloat64("retrieval.bm25_b"),
		},
		Chat: ChatConfig{
			HistoryWindow:   v.GetInt("chat.history_window"),
			MaxContextChars: v.GetInt("chat.max_context_chars"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
