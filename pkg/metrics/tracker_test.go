package metrics

import (
	"log/slog"
	"testing"

	"github.com/matryer/is"
)

// fixedClock replaces the tracker's wall clock with a scripted sequence of
// epoch-second readings. The last reading repeats once the script runs out.
func fixedClock(tr *Tracker, readings ...float64) {
	i := 0
	tr.now = func() float64 {
		v := readings[i]
		if i < len(readings)-1 {
			i++
		}
		return v
	}
}

func TestTracker_TurnIDsStrictlyIncreasing(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())

	for i := 1; i <= 5; i++ {
		turn := tr.StartNewTurn()
		is.Equal(turn.TurnID, i) // IDs start at 1 with no gaps or repeats
	}
	is.Equal(tr.TurnCount(), 5)

	turns := tr.Turns()
	for i, turn := range turns {
		is.Equal(turn.TurnID, i+1) // insertion order matches ID order
	}
}

func TestTracker_LazyTurnCreation(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())

	is.Equal(tr.TurnCount(), 0)

	// First lifecycle event with no current turn creates exactly one.
	tr.MarkUserSpeechEnd("hello there")
	is.Equal(tr.TurnCount(), 1)

	// Further events on the still-open turn do not create another.
	tr.MarkLLMStart()
	tr.MarkLLMFirstToken()
	is.Equal(tr.TurnCount(), 1)

	turn := tr.CurrentTurn()
	is.Equal(turn.UserText, "hello there")
	is.True(turn.UserSpeechEnd != 0)
	is.True(turn.LLMProcessingStart != 0)

	// After the turn ends, the next event opens turn 2.
	tr.EndTurn()
	is.Equal(tr.CurrentTurn(), nil)
	tr.MarkUserSpeechStart()
	is.Equal(tr.TurnCount(), 2)
	is.Equal(tr.CurrentTurn().TurnID, 2)
}

func TestTracker_StampsSetOnce(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())
	fixedClock(tr, 100.0, 101.0, 102.0)

	tr.StartNewTurn()
	tr.MarkLLMStart() // stamps 101.0 (100.0 consumed by new_turn event)
	turn := tr.CurrentTurn()
	first := turn.LLMProcessingStart
	is.True(first != 0)

	tr.MarkLLMStart() // second mark must not overwrite
	is.Equal(turn.LLMProcessingStart, first)
}

func TestTracker_DerivedFromScriptedClock(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())
	// new_turn event, user_speech_end, llm_start, llm_first_token.
	fixedClock(tr, 10.0, 10.0, 10.2, 10.3)

	tr.StartNewTurn()
	tr.MarkUserSpeechEnd("what time is it")
	tr.MarkLLMStart()
	tr.MarkLLMFirstToken()

	m := ComputeDerivedMetrics(tr.CurrentTurn())
	is.True(approx(m[MetricEOUDelay], 200)) // (10.2-10.0)s in ms
	is.True(approx(m[MetricTTFT], 100))     // (10.3-10.2)s in ms
}

func TestTracker_RecordAlwaysAppends(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())

	tr.Record("session_started", nil)
	tr.Record("participant_connected", "alice")
	tr.Record("numeric_payload", 42)

	evs := tr.Events()
	is.Equal(len(evs), 3)
	is.Equal(evs[0].Kind, "session_started")
	is.Equal(evs[0].Data, "")
	is.Equal(evs[1].Data, "alice")
	is.Equal(evs[2].Data, "42")
}

func TestTracker_TextSetOnce(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())

	tr.MarkUserSpeechEnd("first transcript")
	tr.MarkUserSpeechEnd("second transcript")

	is.Equal(tr.CurrentTurn().UserText, "first transcript")
}
