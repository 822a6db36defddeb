// Package deepgram implements streaming speech-to-text over Deepgram's
// realtime websocket API.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/echolabs-dev/voicelat/pkg/ai"
	"github.com/echolabs-dev/voicelat/pkg/ai/stt"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/listen"

// STT is a Deepgram speech-to-text provider.
type STT struct {
	apiKey   string
	model    string
	language string
	endpoint string
	logger   *slog.Logger
}

// Config holds Deepgram provider configuration.
type Config struct {
	APIKey   string
	Model    string // default: nova-3
	Language string // default: multi
	Endpoint string // override for tests
	Logger   *slog.Logger
}

// New creates a Deepgram STT provider.
func New(cfg Config) (*STT, error) {
	if cfg.APIKey == "" {
		return nil, ai.NewFatalError(fmt.Errorf("missing API key"), "Deepgram API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-3"
	}
	if cfg.Language == "" {
		cfg.Language = "multi"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &STT{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		endpoint: cfg.Endpoint,
		logger:   cfg.Logger,
	}, nil
}

func (d *STT) Capabilities() stt.Capabilities {
	return stt.Capabilities{
		Streaming:          true,
		InterimResults:     true,
		SupportedLanguages: []string{"multi", "en", "es", "fr", "de", "hi", "ja", "ko", "pt", "ru", "zh"},
		SampleRates:        []int{8000, 16000, 44100, 48000},
	}
}

// NewStream opens a websocket to the realtime endpoint and starts the
// read loop. The stream lives until CloseSend or context cancellation.
func (d *STT) NewStream(ctx context.Context, cfg stt.StreamConfig) (stt.Stream, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = d.model
	}
	lang := cfg.Lang
	if lang == "" {
		lang = d.language
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 48000
	}
	channels := cfg.NumChannels
	if channels == 0 {
		channels = 1
	}

	q := u.Query()
	q.Set("model", model)
	q.Set("language", lang)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", strconv.Itoa(channels))
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	headers := map[string][]string{
		"Authorization": {"Token " + d.apiKey},
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, ai.NewRecoverableError(err, "failed to connect to Deepgram")
	}

	s := &stream{
		conn:   conn,
		ctx:    ctx,
		events: make(chan stt.SpeechEvent, 16),
		logger: d.logger,
	}
	go s.readLoop()
	return s, nil
}

type stream struct {
	conn    *websocket.Conn
	ctx     context.Context
	events  chan stt.SpeechEvent
	logger  *slog.Logger
	writeMu sync.Mutex
	closed  bool
}

// transcriptMessage mirrors the realtime API's result payload. Every
// result carries at least one alternative.
type transcriptMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Push sends one PCM frame as a binary message.
func (s *stream) Push(frame rtc.AudioFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed {
		return fmt.Errorf("stream is closed")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
		return ai.NewRecoverableError(err, "failed to push audio to Deepgram")
	}
	return nil
}

func (s *stream) Events() <-chan stt.SpeechEvent {
	return s.events
}

// CloseSend tells the service to flush pending audio. The read loop keeps
// running until the server closes the connection with the final results.
func (s *stream) CloseSend() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

// readLoop turns service messages into speech events. Failures become
// error events on the channel; they never terminate the agent.
func (s *stream) readLoop() {
	defer close(s.events)
	defer s.conn.Close()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || s.ctx.Err() != nil {
				return
			}
			s.sendEvent(stt.SpeechEvent{
				Type:      stt.SpeechEventError,
				Error:     ai.NewRecoverableError(err, "Deepgram read failed"),
				Timestamp: time.Now().UnixMilli(),
			})
			return
		}

		var msg transcriptMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("skipping unparseable Deepgram message", slog.String("error", err.Error()))
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}

		ev := stt.SpeechEvent{
			Type:       stt.SpeechEventInterim,
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
			Timestamp:  time.Now().UnixMilli(),
		}
		if msg.IsFinal {
			ev.Type = stt.SpeechEventFinal
		}
		s.sendEvent(ev)
	}
}

func (s *stream) sendEvent(ev stt.SpeechEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}
