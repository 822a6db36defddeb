// Package voice holds small conversation-flow primitives shared by the
// session.
package voice

import "sync/atomic"

// AudioGate decides whether captured microphone frames should be dropped.
// While the assistant is speaking, feeding its own playback back into the
// recognizer would produce phantom turns, so the session mutes capture
// for the duration.
type AudioGate interface {
	// SetSpeaking marks whether assistant playback is in progress.
	SetSpeaking(speaking bool)

	// ShouldDiscardAudio reports whether capture frames should be dropped.
	ShouldDiscardAudio() bool
}

// NewAudioGate returns a gate that starts open (audio passes through).
func NewAudioGate() AudioGate {
	return &defaultGate{}
}

type defaultGate struct {
	speaking atomic.Bool
}

func (g *defaultGate) SetSpeaking(speaking bool) {
	g.speaking.Store(speaking)
}

func (g *defaultGate) ShouldDiscardAudio() bool {
	return g.speaking.Load()
}
