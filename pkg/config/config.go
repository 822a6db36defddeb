// Package config validates the environment the agent needs before any
// session starts. Missing required credentials are the only fatal error
// path in the program.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Mode selects which credentials are required.
type Mode int

const (
	// ModeFull runs the complete STT→LLM→TTS pipeline with metrics.
	ModeFull Mode = iota
	// ModeTranscribe runs transcription only; the STT key is optional
	// and its absence is a warning, not a failure.
	ModeTranscribe
)

// Config holds every credential and setting read from the environment.
type Config struct {
	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	DeepgramAPIKey   string
	GroqAPIKey       string
	CartesiaAPIKey   string

	RoomName    string
	MetricsPath string // report destination; empty uses the session default
}

// Load reads the configuration from environment variables.
func Load() *Config {
	return &Config{
		LiveKitURL:       os.Getenv("LIVEKIT_URL"),
		LiveKitAPIKey:    os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret: os.Getenv("LIVEKIT_API_SECRET"),
		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		CartesiaAPIKey:   os.Getenv("CARTESIA_API_KEY"),
		RoomName:         os.Getenv("LIVEKIT_ROOM"),
		MetricsPath:      os.Getenv("METRICS_PATH"),
	}
}

// Validate checks the credentials the mode requires and returns an error
// naming every missing variable. Optional keys log a warning instead.
func (c *Config) Validate(mode Mode) error {
	var missing []string

	if c.LiveKitURL == "" {
		missing = append(missing, "LIVEKIT_URL")
	}
	if c.LiveKitAPIKey == "" {
		missing = append(missing, "LIVEKIT_API_KEY")
	}
	if c.LiveKitAPISecret == "" {
		missing = append(missing, "LIVEKIT_API_SECRET")
	}

	switch mode {
	case ModeFull:
		if c.DeepgramAPIKey == "" {
			missing = append(missing, "DEEPGRAM_API_KEY")
		}
		if c.GroqAPIKey == "" {
			missing = append(missing, "GROQ_API_KEY")
		}
		if c.CartesiaAPIKey == "" {
			missing = append(missing, "CARTESIA_API_KEY")
		}
	case ModeTranscribe:
		if c.DeepgramAPIKey == "" {
			slog.Warn("DEEPGRAM_API_KEY not set; transcription will be unavailable",
				slog.String("hint", "get a free key at https://console.deepgram.com/"))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
