// Package openai implements llm.Generator against OpenAI-compatible chat
// completion endpoints (OpenAI itself, vLLM, llama.cpp server, and most
// hosted gateways). Streaming responses arrive as SSE events.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/sse"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the OpenAI API URL. Point at any compatible server.
	DefaultBaseURL = "https://api.openai.com"

	// doneSentinel terminates an OpenAI SSE stream.
	doneSentinel = "[DONE]"
)

// Config holds configuration for the OpenAI-compatible generator.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model is the chat model to use. Defaults to DefaultModel.
	Model string
}

// Generator streams chat completions from an OpenAI-compatible endpoint.
type Generator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// completionRequest is the OpenAI chat completions request body.
type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// completionChunk is one streamed completion delta.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// NewGenerator creates a streaming generator for an OpenAI-compatible API.
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
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}, nil
}

// Generate sends the completion request with streaming enabled and emits one
// Chunk per SSE data event until the [DONE] sentinel.
func (g *Generator) Generate(ctx context.Context, req llm.Request, emit func(llm.Chunk) error) error {
	model := req.Model
	if model == "" {
		model = g.model
	}

	messages := req.Messages
	if req.System != "" {
		messages = append([]llm.Message{{Role: llm.RoleSystem, Content: req.System}}, messages...)
	}

	jsonBody, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    messages,
		Stream:      true,
		Temperature: req.Temperature,
	})
	if err != nil {
		return fmt.Errorf("marshaling completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/v1/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	reader := sse.NewReader(resp.Body)
	for {
		event, err := reader.Next()
		if err != nil {
			return fmt.Errorf("reading completion stream: %w", err)
		}
		if event == nil {
			// Stream ended without the sentinel; close it out anyway.
			return emit(llm.Chunk{Done: true})
		}

		if event.Data == doneSentinel {
			return emit(llm.Chunk{Done: true})
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			return fmt.Errorf("decoding completion chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if content := chunk.Choices[0].Delta.Content; content != "" {
			if err := emit(llm.Chunk{Content: content}); err != nil {
				return err
			}
		}
	}
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

var _ llm.Generator = (*Generator)(nil)
