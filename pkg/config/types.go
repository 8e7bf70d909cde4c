package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent ordina configuration stored as
// config.toml in the .ordina/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Corpus      CorpusConfig      `toml:"corpus"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Chat        ChatConfig        `toml:"chat"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. ordina chat, ordina search). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// CorpusConfig holds document corpus settings.
type CorpusConfig struct {
	// Path is the JSONL file holding the chunked document corpus.
	Path string `toml:"path,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Collection string `toml:"collection,omitempty"`
	UseTLS     bool   `toml:"use_tls,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds answer-generation provider settings.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// RetrievalConfig holds the hybrid retrieval tuning knobs.
type RetrievalConfig struct {
	TopK           int     `toml:"top_k,omitempty"`
	ExhaustiveTopK int     `toml:"exhaustive_top_k,omitempty"`
	DenseWeight    float64 `toml:"dense_weight,omitempty"`
	SparseWeight   float64 `toml:"sparse_weight,omitempty"`
	OnDenseFailure string  `toml:"on_dense_failure,omitempty"`
	TimeoutMS      int     `toml:"timeout_ms,omitempty"`
	BM25K1         float64 `toml:"bm25_k1,omitempty"`
	BM25B          float64 `toml:"bm25_b,omitempty"`
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	HistoryWindow   int `toml:"history_window,omitempty"`
	MaxContextChars int `toml:"max_context_chars,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"corpus.path": {
		get: func(c *Config) string { return c.Corpus.Path },
		set: func(c *Config, v string) error { c.Corpus.Path = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.api_key": {
		get: func(c *Config) string { return c.VectorStore.APIKey },
		set: func(c *Config, v string) error { c.VectorStore.APIKey = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"vector_store.use_tls": {
		get: func(c *Config) string { return strconv.FormatBool(c.VectorStore.UseTLS) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for vector_store.use_tls: %w", err)
			}
			c.VectorStore.UseTLS = b
			return nil
		},
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.api_key": {
		get: func(c *Config) string { return c.LLM.APIKey },
		set: func(c *Config, v string) error { c.LLM.APIKey = v; return nil },
	},
	"retrieval.top_k": {
		get: func(c *Config) string { return formatInt(c.Retrieval.TopK) },
		set: func(c *Config, v string) error { return setInt(&c.Retrieval.TopK, "retrieval.top_k", v) },
	},
	"retrieval.exhaustive_top_k": {
		get: func(c *Config) string { return formatInt(c.Retrieval.ExhaustiveTopK) },
		set: func(c *Config, v string) error {
			return setInt(&c.Retrieval.ExhaustiveTopK, "retrieval.exhaustive_top_k", v)
		},
	},
	"retrieval.dense_weight": {
		get: func(c *Config) string { return formatFloat(c.Retrieval.DenseWeight) },
		set: func(c *Config, v string) error {
			return setFloat(&c.Retrieval.DenseWeight, "retrieval.dense_weight", v)
		},
	},
	"retrieval.sparse_weight": {
		get: func(c *Config) string { return formatFloat(c.Retrieval.SparseWeight) },
		set: func(c *Config, v string) error {
			return setFloat(&c.Retrieval.SparseWeight, "retrieval.sparse_weight", v)
		},
	},
	"retrieval.on_dense_failure": {
		get: func(c *Config) string { return c.Retrieval.OnDenseFailure },
		set: func(c *Config, v string) error { c.Retrieval.OnDenseFailure = v; return nil },
	},
	"retrieval.timeout_ms": {
		get: func(c *Config) string { return formatInt(c.Retrieval.TimeoutMS) },
		set: func(c *Config, v string) error { return setInt(&c.Retrieval.TimeoutMS, "retrieval.timeout_ms", v) },
	},
	"retrieval.bm25_k1": {
		get: func(c *Config) string { return formatFloat(c.Retrieval.BM25K1) },
		set: func(c *Config, v string) error { return setFloat(&c.Retrieval.BM25K1, "retrieval.bm25_k1", v) },
	},
	"retrieval.bm25_b": {
		get: func(c *Config) string { return formatFloat(c.Retrieval.BM25B) },
		set: func(c *Config, v string) error { return setFloat(&c.Retrieval.BM25B, "retrieval.bm25_b", v) },
	},
	"chat.history_window": {
		get: func(c *Config) string { return formatInt(c.Chat.HistoryWindow) },
		set: func(c *Config, v string) error { return setInt(&c.Chat.HistoryWindow, "chat.history_window", v) },
	},
	"chat.max_context_chars": {
		get: func(c *Config) string { return formatInt(c.Chat.MaxContextChars) },
		set: func(c *Config, v string) error {
			return setInt(&c.Chat.MaxContextChars, "chat.max_context_chars", v)
		},
	},
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func setInt(target *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = n
	return nil
}

func setFloat(target *float64, key, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = f
	return nil
}
