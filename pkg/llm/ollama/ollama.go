// Package ollama implements llm.Generator against Ollama's chat API.
// Ollama streams newline-delimited JSON chunks rather than SSE.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/civitaslabs/ordina/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel.
	Model string
}

// Generator streams chat completions from Ollama.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// chatRequest is the Ollama-native chat request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

// chatChunk is one streamed NDJSON chunk from Ollama.
type chatChunk struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// NewGenerator creates a streaming generator backed by Ollama's chat API.
func NewGenerator(cfg Config) (*Generator, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// Generation can legitimately run for minutes on large contexts.
			Timeout: 10 * time.Minute,
		},
	}, nil
}

// Generate sends the chat request with streaming enabled and emits one
// Chunk per NDJSON line until the final done chunk.
func (g *Generator) Generate(ctx context.Context, req llm.Request, emit func(llm.Chunk) error) error {
	model := req.Model
	if model == "" {
		model = g.model
	}

	messages := req.Messages
	if req.System != "" {
		messages = append([]llm.Message{{Role: llm.RoleSystem, Content: req.System}}, messages...)
	}

	body := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}
	if req.Temperature != nil {
		body.Options = &chatOptions{Temperature: *req.Temperature}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decoding chat chunk: %w", err)
		}

		if err := emit(llm.Chunk{Content: chunk.Message.Content, Done: chunk.Done}); err != nil {
			return err
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading chat stream: %w", err)
	}

	// Stream ended without a done marker; close it out for the caller.
	return emit(llm.Chunk{Done: true})
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

var _ llm.Generator = (*Generator)(nil)
