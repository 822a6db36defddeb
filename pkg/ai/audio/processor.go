// Package audio defines the capture-path processing contract: echo
// cancellation, noise suppression and gain control applied to microphone
// frames before they reach the recognizer.
package audio

import (
	"time"

	"github.com/echolabs-dev/voicelat/pkg/ai"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

var (
	ErrRecoverable = ai.ErrRecoverable
	ErrFatal       = ai.ErrFatal
)

// ProcessorConfig toggles individual processing sub-modules.
type ProcessorConfig struct {
	EchoCancellation bool
	NoiseSuppression bool
	HighPassFilter   bool
	AutoGainControl  bool
}

// NewProcessorConfig returns a config with every feature enabled.
func NewProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		EchoCancellation: true,
		NoiseSuppression: true,
		HighPassFilter:   true,
		AutoGainControl:  true,
	}
}

// NewProcessorConfigDisabled returns a config with every feature off.
func NewProcessorConfigDisabled() ProcessorConfig {
	return ProcessorConfig{}
}

// Processor cleans up captured audio before recognition.
type Processor interface {
	// ProcessReverse consumes far-end (assistant playback) reference
	// frames. Must be 10 ms frames.
	ProcessReverse(frame rtc.AudioFrame) error

	// ProcessCapture processes a near-end (microphone) frame in place.
	ProcessCapture(frame *rtc.AudioFrame) error

	// SetStreamDelay provides the measured delay between the reverse and
	// capture paths when echo cancellation is on.
	SetStreamDelay(d time.Duration) error

	// Close releases resources.
	Close() error
}
