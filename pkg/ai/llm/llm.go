// Package llm defines the chat-completion contract used by the voice
// pipeline, including streaming generation so callers can observe the
// first-token moment.
package llm

import (
	"context"

	"github.com/echolabs-dev/voicelat/pkg/ai"
)

var (
	ErrRecoverable = ai.ErrRecoverable
	ErrFatal       = ai.ErrFatal
)

// MessageRole identifies who authored a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in the conversation history.
type Message struct {
	Role    MessageRole
	Content string
}

// ChatRequest carries the conversation and sampling parameters.
type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// ChatResponse is the completed generation.
type ChatResponse struct {
	Message      Message
	TokensUsed   int
	FinishReason string
}

// DeltaFunc receives each streamed content fragment as it arrives. The
// first invocation marks the provider's time to first token.
type DeltaFunc func(delta string)

// Capabilities describes what an LLM provider supports.
type Capabilities struct {
	SupportsStreaming  bool
	MaxTokens          int
	SupportedModels    []string
	SupportsSystemRole bool
}

// LLM generates chat completions.
type LLM interface {
	// Chat performs a blocking completion request.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ChatStream performs a streaming completion, invoking onDelta for
	// each content fragment, and returns the assembled response.
	ChatStream(ctx context.Context, req ChatRequest, onDelta DeltaFunc) (ChatResponse, error)

	Capabilities() Capabilities
}
