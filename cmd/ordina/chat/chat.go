// Package chatcmder provides the chat command for interactive Q&A over the
// ordinance corpus through the ordina API.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civitaslabs/ordina/api"
	"github.com/civitaslabs/ordina/pkg/cliui"
	"github.com/civitaslabs/ordina/pkg/config"
	"github.com/civitaslabs/ordina/pkg/logger"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/sse"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("ordina> ")
)

type chatCommander struct {
	apiTarget string
	debug     bool

	sessionID string

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive Q&A session over the ordinance corpus.

Questions are answered by the ordina API server using hybrid retrieval:
relevant ordinance passages are fetched and an LLM generates a grounded,
cited answer. Conversation context is kept server-side per session, so
follow-up questions can refer back to earlier answers.

Examples:
  ordina chat
  ordina chat --api-target http://localhost:8080`

const chatShortDesc string = "Interactive Q&A over the ordinance corpus"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", defaults.Client.APITarget, "Ordina API server URL")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	fmt.Println()
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("API:"), cliui.NameStyle.Render(c.apiTarget))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Ask about city ordinances. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := c.sendAndStream(input); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendAndStream posts the question to the chat endpoint and streams the SSE
// answer to stdout. The session ID from the final event is kept so the next
// question continues the same conversation.
func (c *chatCommander) sendAndStream(question string) error {
	body, err := json.Marshal(rag.AnswerInput{
		SessionID: c.sessionID,
		Query:     question,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		zap.String("api_target", c.apiTarget),
		zap.String("session_id", c.sessionID),
	)

	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.apiTarget+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	client := &http.Client{
		// LLM responses can be slow
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request to ordina API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Print(assistantPrompt)

	reader := sse.NewReader(resp.Body)
	for {
		event, err := reader.Next()
		if err != nil {
			return fmt.Errorf("reading answer stream: %w", err)
		}
		if event == nil {
			return nil
		}

		var chunk api.ChatEvent
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			return fmt.Errorf("decoding answer chunk: %w", err)
		}

		fmt.Print(chunk.Content)

		if chunk.Done {
			if chunk.SessionID != "" {
				c.sessionID = chunk.SessionID
			}
			if chunk.Degraded {
				fmt.Printf("\n  %s\n", cliui.DimStyle.Render("(degraded: keyword results only)"))
			}
			return nil
		}
	}
}
