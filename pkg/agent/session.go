// Package agent wires the STT→LLM→TTS pipeline into a conversation
// session and stamps the latency tracker at every stage boundary.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/echolabs-dev/voicelat/pkg/ai/audio"
	"github.com/echolabs-dev/voicelat/pkg/ai/llm"
	"github.com/echolabs-dev/voicelat/pkg/ai/stt"
	"github.com/echolabs-dev/voicelat/pkg/ai/tts"
	"github.com/echolabs-dev/voicelat/pkg/metrics"
	"github.com/echolabs-dev/voicelat/pkg/rtc"
	"github.com/echolabs-dev/voicelat/pkg/voice"
)

// State represents where the session is in the conversation cycle.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateThinking
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

const (
	defaultSystemPrompt = "You are a helpful voice AI assistant. Keep your responses concise and natural for voice conversation."
	defaultGreeting     = "Hello! I'm your voice assistant. How can I help you today?"

	// apologyText is spoken in place of a reply when generation fails.
	apologyText = "I'm sorry, I encountered an error processing your request."
)

// Config holds everything a Session needs. STT, LLM, TTS and Tracker are
// required; Queue is optional and enables the cross-process record feed.
type Config struct {
	STT     stt.STT
	LLM     llm.LLM
	TTS     tts.TTS
	Tracker *metrics.Tracker
	Queue   *metrics.RecordQueue

	// AudioOut receives synthesized frames for playback. Optional; when
	// nil frames are drained so synthesis timing is still measured.
	AudioOut chan<- rtc.AudioFrame

	// Gate mutes capture while the assistant is speaking. Defaults to a
	// fresh gate.
	Gate voice.AudioGate

	// Processor, when set, cleans up capture frames and receives
	// playback frames as the echo-cancellation reference.
	Processor audio.Processor

	SystemPrompt string
	Greeting     string
	StreamConfig stt.StreamConfig

	Logger *slog.Logger
}

// Session runs one conversation: it feeds participant audio to STT,
// turns final transcripts into LLM replies, speaks them through TTS,
// and records a metrics turn for each exchange.
type Session struct {
	stt     stt.STT
	llm     llm.LLM
	tts     tts.TTS
	tracker *metrics.Tracker
	queue   *metrics.RecordQueue

	gate      voice.AudioGate
	processor audio.Processor

	audioOut chan<- rtc.AudioFrame

	systemPrompt string
	greeting     string
	streamCfg    stt.StreamConfig

	state  atomic.Int32
	logger *slog.Logger

	historyMu sync.Mutex
	history   []llm.Message
}

// NewSession validates the configuration and builds a Session.
func NewSession(cfg Config) (*Session, error) {
	if cfg.STT == nil {
		return nil, fmt.Errorf("STT is required")
	}
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM is required")
	}
	if cfg.TTS == nil {
		return nil, fmt.Errorf("TTS is required")
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}
	if cfg.StreamConfig.SampleRate == 0 {
		cfg.StreamConfig.SampleRate = rtc.SampleRate48k
	}
	if cfg.StreamConfig.NumChannels == 0 {
		cfg.StreamConfig.NumChannels = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gate == nil {
		cfg.Gate = voice.NewAudioGate()
	}

	s := &Session{
		stt:          cfg.STT,
		llm:          cfg.LLM,
		tts:          cfg.TTS,
		tracker:      cfg.Tracker,
		queue:        cfg.Queue,
		gate:         cfg.Gate,
		processor:    cfg.Processor,
		audioOut:     cfg.AudioOut,
		systemPrompt: cfg.SystemPrompt,
		greeting:     cfg.Greeting,
		streamCfg:    cfg.StreamConfig,
		logger:       cfg.Logger,
		history: []llm.Message{
			{Role: llm.RoleSystem, Content: cfg.SystemPrompt},
		},
	}
	s.setState(StateIdle)
	return s, nil
}

// GetState returns the session's current conversation state.
func (s *Session) GetState() State {
	return State(s.state.Load())
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.Debug("session state change",
			slog.String("from", prev.String()),
			slog.String("to", next.String()))
	}
}

// Greet opens the conversation with the fixed greeting. The greeting gets
// its own turn so first-utterance synthesis latency is measured like any
// other reply, but no user-speech stamps are set.
func (s *Session) Greet(ctx context.Context) error {
	s.tracker.StartNewTurn()
	s.tracker.MarkLLMStart()
	s.tracker.MarkLLMFirstToken()
	s.tracker.MarkLLMEnd(s.greeting)

	s.appendHistory(llm.Message{Role: llm.RoleAssistant, Content: s.greeting})

	if err := s.speak(ctx, s.greeting); err != nil {
		s.logger.Error("greeting synthesis failed", slog.String("error", err.Error()))
	}
	s.finishTurn()
	return nil
}

// HandleUserSpeechStart stamps the beginning of a user utterance,
// opening a new turn if none is in progress.
func (s *Session) HandleUserSpeechStart() {
	s.setState(StateListening)
	s.tracker.MarkUserSpeechStart()
}

// HandleUserSpeechFinal stamps the end of the user's utterance and
// generates the reply. Empty transcripts are ignored.
func (s *Session) HandleUserSpeechFinal(ctx context.Context, text string) {
	if text == "" {
		return
	}
	s.tracker.MarkUserSpeechEnd(text)
	s.GenerateReply(ctx, text)
}

// GenerateReply runs the LLM and TTS stages for one user utterance,
// stamping the tracker at each boundary. Generation failures do not
// propagate: the session logs them and speaks a fixed apology instead.
func (s *Session) GenerateReply(ctx context.Context, userText string) {
	s.setState(StateThinking)

	s.appendHistory(llm.Message{Role: llm.RoleUser, Content: userText})

	s.tracker.MarkLLMStart()

	var firstToken sync.Once
	resp, err := s.llm.ChatStream(ctx, llm.ChatRequest{Messages: s.snapshotHistory()}, func(delta string) {
		firstToken.Do(s.tracker.MarkLLMFirstToken)
	})

	reply := resp.Message.Content
	if err != nil {
		s.logger.Error("llm generation failed", slog.String("error", err.Error()))
		s.tracker.Record("error", err.Error())
		reply = apologyText
		s.tracker.MarkLLMFirstToken()
	}
	s.tracker.MarkLLMEnd(reply)

	s.appendHistory(llm.Message{Role: llm.RoleAssistant, Content: reply})

	if err := s.speak(ctx, reply); err != nil {
		s.logger.Error("tts synthesis failed", slog.String("error", err.Error()))
		s.tracker.Record("error", err.Error())
	}
	s.finishTurn()
}

// speak synthesizes text and forwards frames to the audio output,
// stamping first-byte and playback boundaries as they happen.
func (s *Session) speak(ctx context.Context, text string) error {
	s.setState(StateSpeaking)
	s.gate.SetSpeaking(true)
	defer s.gate.SetSpeaking(false)
	s.tracker.MarkTTSStart()

	frames, err := s.tts.Synthesize(ctx, tts.SynthesizeRequest{Text: text})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	first := true
	for frame := range frames {
		if first {
			s.tracker.MarkTTSFirstByte()
			s.tracker.MarkPlaybackStart()
			first = false
		}
		if s.processor != nil {
			if err := s.processor.ProcessReverse(frame); err != nil {
				s.logger.Warn("reverse-path processing failed", slog.String("error", err.Error()))
			}
		}
		if s.audioOut != nil {
			select {
			case s.audioOut <- frame:
			case <-ctx.Done():
				s.tracker.MarkTTSEnd()
				return ctx.Err()
			}
		}
	}
	s.tracker.MarkTTSEnd()
	s.tracker.MarkPlaybackEnd()
	return nil
}

// finishTurn closes the current turn and, when a queue is attached,
// hands a condensed record to the cross-process writer.
func (s *Session) finishTurn() {
	if turn := s.tracker.CurrentTurn(); turn != nil && s.queue != nil {
		s.queue.Put(metrics.RecordFromTurn(turn))
	}
	s.tracker.EndTurn()
	s.setState(StateIdle)
}

func (s *Session) appendHistory(msg llm.Message) {
	s.historyMu.Lock()
	s.history = append(s.history, msg)
	s.historyMu.Unlock()
}

func (s *Session) snapshotHistory() []llm.Message {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}
