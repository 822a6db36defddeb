package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/xuri/excelize/v2"
)

func TestRecordFromTurn(t *testing.T) {
	is := is.New(t)

	full := &Turn{
		Timestamp:          "2026-08-30T12:00:00Z",
		UserText:           "hello",
		AssistantText:      "hi there",
		LLMProcessingStart: 10.0,
		LLMFirstToken:      10.25,
		TTSStart:           10.3,
		TTSFirstByte:       10.4,
	}
	rec := RecordFromTurn(full)
	is.Equal(rec.TTFTMillis, int64(250))
	is.Equal(rec.TTFBMillis, int64(100))
	is.Equal(rec.UserText, "hello")
	is.Equal(rec.AgentText, "hi there")

	// Missing pairs map to the negative N/A marker.
	bare := &Turn{Timestamp: "2026-08-30T12:00:01Z"}
	rec = RecordFromTurn(bare)
	is.Equal(rec.TTFTMillis, int64(-1))
	is.Equal(rec.TTFBMillis, int64(-1))
}

func TestRecordQueue_TryGetEmpty(t *testing.T) {
	is := is.New(t)
	q := NewRecordQueue(4)

	_, ok := q.TryGet()
	is.True(!ok) // empty queue is not an error

	q.Put(TurnRecord{UserText: "one"})
	rec, ok := q.TryGet()
	is.True(ok)
	is.Equal(rec.UserText, "one")

	_, ok = q.TryGet()
	is.True(!ok)
}

func TestWriter_DrainFlushesAllOnCancel(t *testing.T) {
	is := is.New(t)

	const n = 7
	q := NewRecordQueue(n)
	path := filepath.Join(t.TempDir(), "records.xlsx")
	w := NewWriter(q, path, 5*time.Millisecond, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < n; i++ {
		q.Put(TurnRecord{
			Timestamp: fmt.Sprintf("2026-08-30 12:00:%02d", i),
			UserText:  fmt.Sprintf("utterance %d", i),
			AgentText: "reply",
		})
	}

	// Let the writer pick up some records, then cancel mid-stream.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		is.NoErr(err)
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not exit after cancellation")
	}

	// Exactly n records, no loss and no duplication.
	is.Equal(len(w.Records()), n)

	f, err := excelize.OpenFile(path)
	is.NoErr(err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	is.NoErr(err)
	is.Equal(len(rows), n+1) // header + n records
	is.Equal(rows[1][1], "utterance 0")
	is.Equal(rows[n][1], fmt.Sprintf("utterance %d", n-1))
}

func TestWriter_CancelBeforeAnyRecords(t *testing.T) {
	is := is.New(t)

	q := NewRecordQueue(0)
	path := filepath.Join(t.TempDir(), "records.xlsx")
	w := NewWriter(q, path, time.Millisecond, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	is.NoErr(w.Run(ctx))
	is.Equal(len(w.Records()), 0)

	// Nothing accumulated means nothing written.
	if _, err := excelize.OpenFile(path); err == nil {
		t.Error("expected no report file when no records were received")
	}
}

func TestWriter_RecordsEnqueuedJustBeforeCancelSurvive(t *testing.T) {
	is := is.New(t)

	q := NewRecordQueue(8)
	path := filepath.Join(t.TempDir(), "records.xlsx")
	// Long poll interval: records below can only be picked up by the
	// post-cancellation drain.
	w := NewWriter(q, path, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(10 * time.Millisecond) // writer is now parked on the poll timer
	for i := 0; i < 3; i++ {
		q.Put(TurnRecord{UserText: fmt.Sprintf("late %d", i)})
	}
	cancel()

	select {
	case err := <-done:
		is.NoErr(err)
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not exit after cancellation")
	}
	is.Equal(len(w.Records()), 3)
}
