package metrics

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventRecord is one entry in the session's append-only event log. The log
// exists for debugging and audit; derived metrics never read from it.
type EventRecord struct {
	At   float64 // epoch seconds
	Kind string
	Data string
}

// Tracker owns the per-turn records of one session. It is created once per
// session and driven by the lifecycle callbacks of the voice pipeline.
// Register Export with the owning job's shutdown hooks so the report is
// written on every exit path.
type Tracker struct {
	mu sync.Mutex

	sessionStart time.Time
	sessionID    string
	turns        []*Turn
	current      *Turn
	turnCounter  int
	events       []EventRecord

	logger *slog.Logger
	now    func() float64 // overridden in tests
}

// NewTracker creates a tracker for a session starting now. The session ID
// is derived from the start time so report filenames sort chronologically.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	return &Tracker{
		sessionStart: start,
		sessionID:    start.Format("20060102_150405"),
		logger:       logger,
		now:          wallSeconds,
	}
}

// SessionID returns the identifier derived from the session start time.
func (tr *Tracker) SessionID() string {
	return tr.sessionID
}

// TurnCount returns the number of turns created so far.
func (tr *Tracker) TurnCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.turns)
}

// Record appends an entry to the event log with the current wall time.
// The payload is stringified with %v; nil leaves it empty. Record always
// succeeds.
func (tr *Tracker) Record(kind string, data any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.record(kind, data)
}

// record appends to the event log. Caller holds tr.mu.
func (tr *Tracker) record(kind string, data any) {
	rec := EventRecord{At: tr.now(), Kind: kind}
	if data != nil {
		rec.Data = fmt.Sprintf("%v", data)
	}
	tr.events = append(tr.events, rec)
}

// StartNewTurn creates and appends a new turn, makes it current and
// returns it. Turn IDs are assigned exactly once from a session counter
// and form a strictly increasing sequence starting at 1.
func (tr *Tracker) StartNewTurn() *Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.startNewTurn()
}

// startNewTurn creates a turn. Caller holds tr.mu.
func (tr *Tracker) startNewTurn() *Turn {
	tr.turnCounter++
	t := &Turn{
		TurnID:    tr.turnCounter,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	tr.turns = append(tr.turns, t)
	tr.current = t
	tr.record("new_turn", t.TurnID)
	tr.logger.Debug("turn started", slog.Int("turn_id", t.TurnID))
	return t
}

// EndTurn closes the current turn so the next lifecycle event starts a
// fresh one. The turn itself stays in the session; turns are never deleted.
func (tr *Tracker) EndTurn() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.current != nil {
		tr.record("turn_ended", tr.current.TurnID)
		tr.current = nil
	}
}

// currentOrNew returns the current turn, lazily creating one when the first
// lifecycle event of an exchange arrives before an explicit start.
// Caller holds tr.mu.
func (tr *Tracker) currentOrNew() *Turn {
	if tr.current == nil {
		tr.startNewTurn()
	}
	return tr.current
}

// mark sets a timestamp field on the current turn through set, which must
// write the field only when it is still zero. The stamp and its event-log
// entry share one clock reading. Caller holds tr.mu.
func (tr *Tracker) mark(kind string, data any, set func(t *Turn, at float64)) {
	t := tr.currentOrNew()
	at := tr.now()
	set(t, at)
	rec := EventRecord{At: at, Kind: kind}
	if data != nil {
		rec.Data = fmt.Sprintf("%v", data)
	}
	tr.events = append(tr.events, rec)
}

// MarkUserSpeechStart stamps the moment the user began speaking.
func (tr *Tracker) MarkUserSpeechStart() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("user_speech_start", nil, func(t *Turn, at float64) {
		if t.UserSpeechStart == 0 {
			t.UserSpeechStart = at
		}
	})
}

// MarkUserSpeechEnd stamps the end of the user's utterance and records the
// final transcript.
func (tr *Tracker) MarkUserSpeechEnd(text string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("user_speech_end", text, func(t *Turn, at float64) {
		if t.UserSpeechEnd == 0 {
			t.UserSpeechEnd = at
		}
		if t.UserText == "" {
			t.UserText = text
		}
	})
}

// MarkLLMStart stamps the start of response generation.
func (tr *Tracker) MarkLLMStart() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("llm_processing_start", nil, func(t *Turn, at float64) {
		if t.LLMProcessingStart == 0 {
			t.LLMProcessingStart = at
		}
	})
}

// MarkLLMFirstToken stamps the arrival of the first generated token.
func (tr *Tracker) MarkLLMFirstToken() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("llm_first_token", nil, func(t *Turn, at float64) {
		if t.LLMFirstToken == 0 {
			t.LLMFirstToken = at
		}
	})
}

// MarkLLMEnd stamps the end of generation and records the full reply text.
func (tr *Tracker) MarkLLMEnd(text string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("llm_processing_end", text, func(t *Turn, at float64) {
		if t.LLMProcessingEnd == 0 {
			t.LLMProcessingEnd = at
		}
		if t.AssistantText == "" {
			t.AssistantText = text
		}
	})
}

// MarkTTSStart stamps the start of speech synthesis.
func (tr *Tracker) MarkTTSStart() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("tts_start", nil, func(t *Turn, at float64) {
		if t.TTSStart == 0 {
			t.TTSStart = at
		}
	})
}

// MarkTTSFirstByte stamps the arrival of the first synthesized audio byte.
func (tr *Tracker) MarkTTSFirstByte() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("tts_first_byte", nil, func(t *Turn, at float64) {
		if t.TTSFirstByte == 0 {
			t.TTSFirstByte = at
		}
	})
}

// MarkTTSEnd stamps the end of speech synthesis.
func (tr *Tracker) MarkTTSEnd() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("tts_end", nil, func(t *Turn, at float64) {
		if t.TTSEnd == 0 {
			t.TTSEnd = at
		}
	})
}

// MarkPlaybackStart stamps the start of audio playback to the room.
func (tr *Tracker) MarkPlaybackStart() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("audio_playback_start", nil, func(t *Turn, at float64) {
		if t.AudioPlaybackStart == 0 {
			t.AudioPlaybackStart = at
		}
	})
}

// MarkPlaybackEnd stamps the end of audio playback.
func (tr *Tracker) MarkPlaybackEnd() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.mark("audio_playback_end", nil, func(t *Turn, at float64) {
		if t.AudioPlaybackEnd == 0 {
			t.AudioPlaybackEnd = at
		}
	})
}

// CurrentTurn returns the turn currently being populated, or nil between
// turns.
func (tr *Tracker) CurrentTurn() *Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.current
}

// Turns returns a snapshot of all turns in creation order.
func (tr *Tracker) Turns() []*Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]*Turn, len(tr.turns))
	copy(out, tr.turns)
	return out
}

// Events returns a snapshot of the event log in append order.
func (tr *Tracker) Events() []EventRecord {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]EventRecord, len(tr.events))
	copy(out, tr.events)
	return out
}
