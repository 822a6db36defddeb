// Package tts defines the speech-synthesis contract. Synthesized audio is
// delivered as a stream of frames; the first frame on the channel marks
// the provider's time to first byte.
package tts

import (
	"context"

	"github.com/echolabs-dev/voicelat/pkg/ai"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

var (
	ErrRecoverable = ai.ErrRecoverable
	ErrFatal       = ai.ErrFatal
)

// SynthesizeRequest describes one utterance to synthesize.
type SynthesizeRequest struct {
	Text     string
	Voice    string
	Language string
	Speed    float32
}

// Capabilities describes what a TTS provider supports.
type Capabilities struct {
	Streaming          bool
	SupportedLanguages []string
	SupportedVoices    []string
	SampleRates        []int
}

// TTS converts text to audio.
type TTS interface {
	// Synthesize converts text to audio frames. The returned channel
	// closes when synthesis completes or the context is cancelled.
	Synthesize(ctx context.Context, req SynthesizeRequest) (<-chan rtc.AudioFrame, error)

	Capabilities() Capabilities
}
