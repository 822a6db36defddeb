package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/echolabs-dev/voicelat/pkg/ai/stt"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

// RunParticipant transcribes one participant's audio until the frame
// channel closes or the context is cancelled. Interim transcripts are
// logged; final transcripts stamp the turn and trigger a reply. Stream
// errors end this participant's loop without affecting the session.
func (s *Session) RunParticipant(ctx context.Context, identity string, frames <-chan rtc.AudioFrame) error {
	logger := s.logger.With(slog.String("participant", identity))

	stream, err := s.stt.NewStream(ctx, s.streamCfg)
	if err != nil {
		return fmt.Errorf("open stt stream for %s: %w", identity, err)
	}

	// Feeder: pump frames at the provider until the source dries up.
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		for {
			select {
			case <-ctx.Done():
				stream.CloseSend()
				return
			case frame, ok := <-frames:
				if !ok {
					stream.CloseSend()
					return
				}
				if s.gate.ShouldDiscardAudio() {
					continue
				}
				if s.processor != nil {
					if err := s.processor.ProcessCapture(&frame); err != nil {
						logger.Warn("capture processing failed", slog.String("error", err.Error()))
					}
				}
				if err := stream.Push(frame); err != nil {
					logger.Warn("audio push failed", slog.String("error", err.Error()))
					stream.CloseSend()
					return
				}
			}
		}
	}()

	defer func() { <-feedDone }()

	speaking := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-stream.Events():
			if !ok {
				return nil
			}
			switch event.Type {
			case stt.SpeechEventInterim:
				if !speaking && event.Text != "" {
					speaking = true
					s.HandleUserSpeechStart()
				}
				logger.Debug("interim transcript",
					slog.String("text", event.Text),
					slog.Float64("confidence", event.Confidence))
			case stt.SpeechEventFinal:
				logger.Info("final transcript",
					slog.String("text", event.Text),
					slog.Float64("confidence", event.Confidence))
				if !speaking {
					s.HandleUserSpeechStart()
				}
				speaking = false
				s.HandleUserSpeechFinal(ctx, event.Text)
			case stt.SpeechEventError:
				if errors.Is(event.Error, context.Canceled) {
					return nil
				}
				logger.Error("transcription stream failed", slog.String("error", event.Error.Error()))
				return fmt.Errorf("transcription for %s: %w", identity, event.Error)
			}
		}
	}
}
