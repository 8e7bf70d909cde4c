package testutils

import (
	"context"
	"fmt"

	"github.com/civitaslabs/ordina/pkg/llm"
)

// MockGenerator is a test generator that streams a fixed response and
// records the requests it receives.
type MockGenerator struct {
	// Response is streamed back in word-ish chunks.
	Response string

	// Fail causes Generate to return an error
	Fail bool

	// Requests records every request passed to Generate
	Requests []llm.Request
}

func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

func (m *MockGenerator) Generate(_ context.Context, req llm.Request, emit func(llm.Chunk) error) error {
	if m.Fail {
		return fmt.Errorf("mock generation failure")
	}

	m.Requests = append(m.Requests, req)

	// Stream in two chunks so callers exercise accumulation.
	half := len(m.Response) / 2
	if half > 0 {
		if err := emit(llm.Chunk{Content: m.Response[:half]}); err != nil {
			return err
		}
	}
	if err := emit(llm.Chunk{Content: m.Response[half:]}); err != nil {
		return err
	}
	return emit(llm.Chunk{Done: true})
}

func (m *MockGenerator) Close() error {
	return nil
}

var _ llm.Generator = (*MockGenerator)(nil)
