// Package llm defines the answer-generation contract: a provider-agnostic
// message shape, a streaming Generator interface, and the prompt assembly
// that turns a question, its retrieved context block, and conversation
// history into a generation request.
package llm

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single text message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrorResponse is the JSON error body returned by API handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}
