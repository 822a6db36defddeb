package groq

import (
	"fmt"
	"os"

	"github.com/echolabs-dev/voicelat/pkg/plugin"
)

func newGroqLLM(cfg map[string]any) (any, error) {
	config := Config{}

	if apiKey, ok := cfg["api_key"].(string); ok {
		config.APIKey = apiKey
	} else {
		config.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("Groq API key is required (set GROQ_API_KEY or provide api_key in config)")
	}

	if model, ok := cfg["model"].(string); ok {
		config.Model = model
	}

	return New(config)
}

func init() {
	plugin.Register(&plugin.Provider{
		Kind:        "llm",
		Name:        "groq",
		Factory:     newGroqLLM,
		Description: "Groq chat completion (OpenAI-compatible API)",
	})
}
