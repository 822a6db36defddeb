// Package groq implements the LLM contract against Groq's
// OpenAI-compatible chat completion API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/echolabs-dev/voicelat/pkg/ai"
	"github.com/echolabs-dev/voicelat/pkg/ai/llm"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama3-8b-8192"
)

// LLM is a Groq chat-completion provider.
type LLM struct {
	client *openai.Client
	model  string
}

// Config holds Groq provider configuration.
type Config struct {
	APIKey  string
	Model   string // default: llama3-8b-8192
	BaseURL string // override for tests
}

// New creates a Groq LLM provider.
func New(cfg Config) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, ai.NewFatalError(fmt.Errorf("missing API key"), "Groq API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &LLM{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

func (g *LLM) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		SupportsStreaming:  true,
		MaxTokens:          8192,
		SupportedModels:    []string{defaultModel, "llama3-70b-8192", "mixtral-8x7b-32768"},
		SupportsSystemRole: true,
	}
}

// Chat performs a blocking completion.
func (g *LLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(req, false))
	if err != nil {
		return llm.ChatResponse{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}, ai.NewRecoverableError(fmt.Errorf("empty response"), "Groq returned no choices")
	}

	choice := resp.Choices[0]
	return llm.ChatResponse{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: choice.Message.Content,
		},
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: string(choice.FinishReason),
	}, nil
}

// ChatStream performs a streaming completion, invoking onDelta per
// content fragment, and returns the assembled response.
func (g *LLM) ChatStream(ctx context.Context, req llm.ChatRequest, onDelta llm.DeltaFunc) (llm.ChatResponse, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, g.buildRequest(req, true))
	if err != nil {
		return llm.ChatResponse{}, classify(err)
	}
	defer stream.Close()

	var (
		content      strings.Builder
		finishReason string
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return llm.ChatResponse{}, classify(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			content.WriteString(choice.Delta.Content)
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}
		if choice.FinishReason != "" {
			finishReason = string(choice.FinishReason)
		}
	}

	return llm.ChatResponse{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: content.String(),
		},
		FinishReason: finishReason,
	}, nil
}

func (g *LLM) buildRequest(req llm.ChatRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// classify maps API errors onto the shared retry taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403, 400:
			return ai.NewFatalError(err, "Groq request rejected")
		}
	}
	return ai.NewRecoverableError(err, "Groq request failed")
}
