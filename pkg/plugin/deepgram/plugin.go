package deepgram

import (
	"fmt"
	"os"

	"github.com/echolabs-dev/voicelat/pkg/plugin"
)

func newDeepgramSTT(cfg map[string]any) (any, error) {
	config := Config{}

	if apiKey, ok := cfg["api_key"].(string); ok {
		config.APIKey = apiKey
	} else {
		config.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("Deepgram API key is required (set DEEPGRAM_API_KEY or provide api_key in config)")
	}

	if model, ok := cfg["model"].(string); ok {
		config.Model = model
	}
	if language, ok := cfg["language"].(string); ok {
		config.Language = language
	}

	return New(config)
}

func init() {
	plugin.Register(&plugin.Provider{
		Kind:        "stt",
		Name:        "deepgram",
		Factory:     newDeepgramSTT,
		Description: "Deepgram streaming speech-to-text",
	})
}
