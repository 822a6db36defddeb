// Package stt defines the streaming speech-to-text contract. A stream
// accepts PCM frames and emits transcript events until cancelled; the
// event sequence is not restartable.
package stt

import (
	"context"

	"github.com/echolabs-dev/voicelat/pkg/ai"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

var (
	ErrRecoverable = ai.ErrRecoverable
	ErrFatal       = ai.ErrFatal
)

// StreamConfig configures one STT streaming session.
type StreamConfig struct {
	SampleRate  int
	NumChannels int
	Lang        string
	Model       string
}

// SpeechEventType classifies a transcript event.
type SpeechEventType int

const (
	// SpeechEventInterim is a partial transcript that may still change.
	SpeechEventInterim SpeechEventType = iota
	// SpeechEventFinal is a finalized transcript.
	SpeechEventFinal
	// SpeechEventError carries a transcription failure.
	SpeechEventError
)

// SpeechEvent is one recognition result from the provider. Providers that
// return multiple alternatives surface the top-ranked one here.
type SpeechEvent struct {
	Type       SpeechEventType
	Text       string
	IsFinal    bool
	Confidence float64
	Language   string
	Timestamp  int64 // milliseconds since epoch
	Error      error // set only for error events
}

// Capabilities describes what an STT provider supports.
type Capabilities struct {
	Streaming          bool
	InterimResults     bool
	SupportedLanguages []string
	SampleRates        []int
}

// STT creates streaming recognition sessions.
type STT interface {
	// NewStream opens a streaming session. The stream lives until the
	// context is cancelled or CloseSend is called.
	NewStream(ctx context.Context, cfg StreamConfig) (Stream, error)

	Capabilities() Capabilities
}

// Stream is one active recognition session.
type Stream interface {
	// Push sends an audio frame for recognition.
	Push(frame rtc.AudioFrame) error

	// Events returns the transcript event channel. It closes when the
	// stream ends.
	Events() <-chan SpeechEvent

	// CloseSend flushes pending audio and signals end of input.
	CloseSend() error
}
