package llm

import "context"

// Request is a provider-agnostic generation request.
type Request struct {
	// Model names the completion model. Empty uses the provider default.
	Model string `json:"model,omitempty"`

	// System is the system prompt, handled separately by providers that
	// support it natively.
	System string `json:"system,omitempty"`

	// Messages is the conversation to complete.
	Messages []Message `json:"messages"`

	// Temperature, when set, overrides the provider default.
	Temperature *float64 `json:"temperature,omitempty"`
}

// Chunk is one increment of a streamed completion.
type Chunk struct {
	// Content is the partial answer text carried by this chunk.
	Content string `json:"content"`

	// Done marks the final chunk of a completion.
	Done bool `json:"done"`
}

// Generator produces completions as an incremental stream. Implementations
// call emit once per chunk, in order, finishing with a Done chunk; an error
// returned from emit aborts the stream (e.g. the client disconnected).
type Generator interface {
	Generate(ctx context.Context, req Request, emit func(Chunk) error) error

	// Close releases any resources held by the generator.
	Close() error
}
