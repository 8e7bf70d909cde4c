package rag

import "time"

// Monitor receives lifecycle notifications for queries flowing through the
// Orchestrator. Implementations must be safe for concurrent use.
type Monitor interface {
	// QueryReceived fires when a query enters the orchestrator, before
	// moderation or retrieval.
	QueryReceived(sessionID, query string)

	// RetrievalCompleted fires after fusion, with the fused result count and
	// whether the dense side was degraded away.
	RetrievalCompleted(query string, results int, degraded bool, elapsed time.Duration)

	// AnswerCompleted fires after the full answer has streamed.
	AnswerCompleted(sessionID string, answerRunes int, elapsed time.Duration)
}

// NoopMonitor ignores all notifications.
type NoopMonitor struct{}

func (NoopMonitor) QueryReceived(string, string) {}

func (NoopMonitor) RetrievalCompleted(string, int, bool, time.Duration) {}

func (NoopMonitor) AnswerCompleted(string, int, time.Duration) {}

var _ Monitor = NoopMonitor{}
