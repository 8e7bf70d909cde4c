package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

// ChatEvent is one SSE data payload on the chat stream. Content chunks
// arrive first; the final event carries Done plus the turn metadata.
type ChatEvent struct {
	Content   string `json:"content,omitempty"`
	Done      bool   `json:"done,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
	Blocked   bool   `json:"blocked,omitempty"`
	Sources   int    `json:"sources,omitempty"`
}

// handleChat handles POST /v1/chat requests and streams the answer as SSE.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var in rag.AnswerInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if in.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "query is required"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")

	// io.Pipe rather than SetBodyStreamWriter: pw.Write blocks until
	// fasthttp's chunked writer consumes the data, so each answer chunk
	// reaches the client as it is generated instead of buffering.
	pr, pw := io.Pipe()
	go s.streamAnswer(c.Context(), in, pw)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamAnswer runs the orchestrator turn and writes SSE frames to pw.
func (s *Server) streamAnswer(ctx context.Context, in rag.AnswerInput, pw *io.PipeWriter) {
	out, err := s.orchestrator.Answer(ctx, in, func(chunk llm.Chunk) error {
		if chunk.Done {
			return nil
		}
		return writeEvent(pw, ChatEvent{Content: chunk.Content})
	})
	if err != nil {
		s.logger.Error("chat turn failed", zap.Error(err))

		message := "answer generation failed"
		if errors.Is(err, sparse.ErrIndexUnavailable) {
			message = "sparse index not built"
		}
		_ = writeEvent(pw, ChatEvent{Content: message, Done: true})
		_ = pw.CloseWithError(err)
		return
	}

	final := ChatEvent{
		Done:      true,
		SessionID: out.SessionID,
		Blocked:   out.Blocked,
	}
	if out.Search != nil {
		final.Degraded = out.Search.Degraded
		final.Sources = out.Search.Count
	}

	_ = writeEvent(pw, final)
	_ = pw.Close()
}

// writeEvent writes one SSE data frame.
func writeEvent(w io.Writer, event ChatEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
