// Package fake provides a scripted STT implementation for tests.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/echolabs-dev/voicelat/pkg/ai/stt"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

// FakeSTT emits a scripted sequence of speech events on every stream.
type FakeSTT struct {
	script []stt.SpeechEvent
}

// NewFakeSTT creates a fake that produces the given events in order after
// the first audio frame is pushed.
func NewFakeSTT(script ...stt.SpeechEvent) *FakeSTT {
	return &FakeSTT{script: script}
}

// FinalTranscript is a convenience script of one final event.
func FinalTranscript(text string, confidence float64) []stt.SpeechEvent {
	return []stt.SpeechEvent{{
		Type:       stt.SpeechEventFinal,
		Text:       text,
		IsFinal:    true,
		Confidence: confidence,
		Timestamp:  time.Now().UnixMilli(),
	}}
}

func (f *FakeSTT) NewStream(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	s := &fakeStream{
		ctx:    ctx,
		script: f.script,
		events: make(chan stt.SpeechEvent, len(f.script)+1),
	}
	return s, nil
}

func (f *FakeSTT) Capabilities() stt.Capabilities {
	return stt.Capabilities{
		Streaming:          true,
		InterimResults:     true,
		SupportedLanguages: []string{"en"},
		SampleRates:        []int{16000, 48000},
	}
}

type fakeStream struct {
	ctx     context.Context
	script  []stt.SpeechEvent
	events  chan stt.SpeechEvent
	emitted bool
	closed  bool
	mu      sync.Mutex
}

// Push triggers the scripted events on the first frame.
func (s *fakeStream) Push(frame rtc.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stt.ErrFatal
	}
	s.emitLocked()
	return nil
}

func (s *fakeStream) emitLocked() {
	if s.emitted {
		return
	}
	s.emitted = true
	for _, ev := range s.script {
		select {
		case s.events <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *fakeStream) Events() <-chan stt.SpeechEvent {
	return s.events
}

// CloseSend flushes the script even when no audio was pushed, then ends
// the event stream.
func (s *fakeStream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.emitLocked()
	close(s.events)
	return nil
}
