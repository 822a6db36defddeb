// Package fake provides a canned LLM implementation for tests.
package fake

import (
	"context"
	"strings"

	"github.com/echolabs-dev/voicelat/pkg/ai/llm"
)

// FakeLLM cycles through predefined responses. When Err is set, every
// request fails with it instead.
type FakeLLM struct {
	responses []string
	callCount int

	// Err, when non-nil, is returned by every Chat and ChatStream call.
	Err error
}

// NewFakeLLM creates a fake with the given responses, or defaults when
// none are provided.
func NewFakeLLM(responses ...string) *FakeLLM {
	if len(responses) == 0 {
		responses = []string{
			"This is a canned response from the fake LLM.",
			"I'm a fake assistant. How can I help?",
		}
	}
	return &FakeLLM{responses: responses}
}

func (f *FakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return f.ChatStream(ctx, req, nil)
}

// ChatStream emits the response word by word through onDelta, then
// returns the assembled response.
func (f *FakeLLM) ChatStream(ctx context.Context, req llm.ChatRequest, onDelta llm.DeltaFunc) (llm.ChatResponse, error) {
	if f.Err != nil {
		return llm.ChatResponse{}, f.Err
	}

	response := f.responses[f.callCount%len(f.responses)]
	f.callCount++

	if onDelta != nil {
		for _, word := range strings.Fields(response) {
			select {
			case <-ctx.Done():
				return llm.ChatResponse{}, ctx.Err()
			default:
			}
			onDelta(word + " ")
		}
	}

	return llm.ChatResponse{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: response,
		},
		TokensUsed:   len(strings.Fields(response)),
		FinishReason: "stop",
	}, nil
}

func (f *FakeLLM) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		SupportsStreaming:  true,
		MaxTokens:          4096,
		SupportedModels:    []string{"fake-model"},
		SupportsSystemRole: true,
	}
}
