package config

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func fullConfig() *Config {
	return &Config{
		LiveKitURL:       "wss://example.livekit.cloud",
		LiveKitAPIKey:    "key",
		LiveKitAPISecret: "secret",
		DeepgramAPIKey:   "dg",
		GroqAPIKey:       "gq",
		CartesiaAPIKey:   "ct",
	}
}

func TestValidate_FullMode(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		missing []string
	}{
		{
			name:   "all set",
			mutate: func(c *Config) {},
		},
		{
			name:    "no livekit url",
			mutate:  func(c *Config) { c.LiveKitURL = "" },
			missing: []string{"LIVEKIT_URL"},
		},
		{
			name:    "no provider keys",
			mutate:  func(c *Config) { c.DeepgramAPIKey = ""; c.GroqAPIKey = ""; c.CartesiaAPIKey = "" },
			missing: []string{"DEEPGRAM_API_KEY", "GROQ_API_KEY", "CARTESIA_API_KEY"},
		},
		{
			name: "nothing set",
			mutate: func(c *Config) {
				*c = Config{}
			},
			missing: []string{
				"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET",
				"DEEPGRAM_API_KEY", "GROQ_API_KEY", "CARTESIA_API_KEY",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			cfg := fullConfig()
			tt.mutate(cfg)

			err := cfg.Validate(ModeFull)
			if len(tt.missing) == 0 {
				is.NoErr(err)
				return
			}
			is.True(err != nil)
			for _, name := range tt.missing {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("error %q does not name %s", err, name)
				}
			}
		})
	}
}

func TestValidate_TranscribeModeDeepgramOptional(t *testing.T) {
	is := is.New(t)
	cfg := fullConfig()
	cfg.DeepgramAPIKey = ""
	cfg.GroqAPIKey = ""
	cfg.CartesiaAPIKey = ""

	// Transcribe mode only needs the LiveKit trio.
	is.NoErr(cfg.Validate(ModeTranscribe))
}
