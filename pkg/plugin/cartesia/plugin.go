package cartesia

import (
	"fmt"
	"os"

	"github.com/echolabs-dev/voicelat/pkg/plugin"
)

func newCartesiaTTS(cfg map[string]any) (any, error) {
	config := Config{}

	if apiKey, ok := cfg["api_key"].(string); ok {
		config.APIKey = apiKey
	} else {
		config.APIKey = os.Getenv("CARTESIA_API_KEY")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("Cartesia API key is required (set CARTESIA_API_KEY or provide api_key in config)")
	}

	if model, ok := cfg["model"].(string); ok {
		config.Model = model
	}
	if voice, ok := cfg["voice"].(string); ok {
		config.Voice = voice
	}

	return New(config)
}

func init() {
	plugin.Register(&plugin.Provider{
		Kind:        "tts",
		Name:        "cartesia",
		Factory:     newCartesiaTTS,
		Description: "Cartesia Sonic text-to-speech",
	})
}
