package llm

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxHistoryExchanges bounds how many prior turns are rendered
	// into the prompt.
	DefaultMaxHistoryExchanges = 5

	// maxHistoryMessageRunes truncates very long history entries so old
	// answers cannot crowd out the retrieved context.
	maxHistoryMessageRunes = 500
)

// SystemPrompt instructs the model to act as a municipal-ordinance
// assistant answering strictly from the retrieved passages.
const SystemPrompt = `You are a municipal government information assistant. You answer questions about city ordinances, regulations, reports, and public announcements.

Guidelines:
- Answer strictly from the provided context passages. If the answer is not in the context, say you did not find that information and suggest rephrasing the question.
- Be direct and concise.
- When quoting an ordinance, give the complete relevant text available in the context.
- Cite sources at the end of the answer using the bracketed labels attached to each passage, as [Title, p.X](url) when a URL is present.
- Use the conversation history to resolve references to earlier exchanges.
- For "list all" or "how many" questions, enumerate every matching document found in the context.`

// Exchange is one prior (query, answer) pair rendered into the prompt.
type Exchange struct {
	Query  string
	Answer string
}

// FormatHistory renders prior exchanges as alternating Human/Assistant
// lines, keeping only the most recent maxExchanges and truncating oversized
// messages. Exchanges must be ordered oldest first.
func FormatHistory(exchanges []Exchange, maxExchanges int) string {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxHistoryExchanges
	}
	if len(exchanges) > maxExchanges {
		exchanges = exchanges[len(exchanges)-maxExchanges:]
	}

	var b strings.Builder
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "Human: %s\n", truncateRunes(ex.Query, maxHistoryMessageRunes))
		fmt.Fprintf(&b, "Assistant: %s\n", truncateRunes(ex.Answer, maxHistoryMessageRunes))
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt assembles the generation request messages: the system prompt
// plus one user message carrying the formatted history, the current
// question, and the retrieved context block.
func BuildPrompt(question, history, contextBlock string) []Message {
	var b strings.Builder
	if history != "" {
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Current Question: %s\n\nRelevant Context:\n%s", question, contextBlock)

	return []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: b.String()},
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
