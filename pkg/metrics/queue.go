package metrics

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
)

// TurnRecord is the flat, completed-turn form that crosses the boundary
// between the session worker and the supervising writer. Durations are in
// whole milliseconds; a negative value means the stamp pair was missing
// and renders as N/A.
type TurnRecord struct {
	Timestamp  string
	UserText   string
	AgentText  string
	TTFTMillis int64
	TTFBMillis int64
}

// RecordFromTurn flattens a finished turn into a TurnRecord.
func RecordFromTurn(t *Turn) TurnRecord {
	rec := TurnRecord{
		Timestamp:  t.Timestamp,
		UserText:   t.UserText,
		AgentText:  t.AssistantText,
		TTFTMillis: -1,
		TTFBMillis: -1,
	}
	derived := ComputeDerivedMetrics(t)
	if v, ok := derived[MetricTTFT]; ok {
		rec.TTFTMillis = int64(v + 0.5)
	}
	if v, ok := derived[MetricTTFB]; ok {
		rec.TTFBMillis = int64(v + 0.5)
	}
	return rec
}

// RecordQueue is the FIFO between the producing session and the consuming
// Writer. Put blocks when the queue is at capacity so no record is ever
// dropped on the producer side.
type RecordQueue struct {
	ch chan TurnRecord
}

// NewRecordQueue creates a queue with the given capacity (64 when <= 0).
func NewRecordQueue(capacity int) *RecordQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &RecordQueue{ch: make(chan TurnRecord, capacity)}
}

// Put enqueues a record, blocking while the queue is full.
func (q *RecordQueue) Put(rec TurnRecord) {
	q.ch <- rec
}

// TryGet receives one record without blocking. An empty queue returns
// ok == false; it is not an error.
func (q *RecordQueue) TryGet() (TurnRecord, bool) {
	select {
	case rec := <-q.ch:
		return rec, true
	default:
		return TurnRecord{}, false
	}
}

// Writer drains a RecordQueue on a fixed poll interval and accumulates
// records in memory. Cancelling its context is the normal stop signal: the
// writer drains whatever is still queued, then writes everything it has
// accumulated in one pass. No record received before the cancellation
// point is lost.
type Writer struct {
	queue    *RecordQueue
	path     string
	interval time.Duration
	logger   *slog.Logger

	records []TurnRecord
}

// NewWriter creates a writer that flushes to path on cancellation.
// A zero interval defaults to 100ms.
func NewWriter(queue *RecordQueue, path string, interval time.Duration, logger *slog.Logger) *Writer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = "output_metrics.xlsx"
	}
	return &Writer{
		queue:    queue,
		path:     path,
		interval: interval,
		logger:   logger,
	}
}

// Run polls the queue until ctx is cancelled, then flushes. It always
// returns nil on cancellation; only a flush failure surfaces as an error.
func (w *Writer) Run(ctx context.Context) error {
	w.logger.Info("metrics writer started", slog.String("path", w.path))

	for {
		rec, ok := w.queue.TryGet()
		if ok {
			w.records = append(w.records, rec)
			w.logger.Debug("metrics writer received record",
				slog.String("user_text", rec.UserText))
			continue
		}

		select {
		case <-ctx.Done():
			w.drainRemaining()
			return w.Flush()
		case <-time.After(w.interval):
		}
	}
}

// drainRemaining empties the queue after cancellation so records enqueued
// right before the stop signal still make the final report.
func (w *Writer) drainRemaining() {
	for {
		rec, ok := w.queue.TryGet()
		if !ok {
			return
		}
		w.records = append(w.records, rec)
	}
}

// Flush writes all accumulated records. Spreadsheet first, CSV fallback,
// mirroring Tracker.Export's degradation policy.
func (w *Writer) Flush() error {
	if len(w.records) == 0 {
		w.logger.Info("metrics writer stopped, no records to save")
		return nil
	}

	if err := writeRecordsXLSX(w.path, w.records); err != nil {
		w.logger.Error("record spreadsheet write failed, falling back to CSV",
			slog.String("path", w.path),
			slog.String("error", err.Error()))

		csvPath := csvFallbackPath(w.path)
		if csvErr := writeRecordsCSV(csvPath, w.records); csvErr != nil {
			w.logger.Error("record CSV write failed",
				slog.String("path", csvPath),
				slog.String("error", csvErr.Error()))
			return fmt.Errorf("flush records: %w", csvErr)
		}
		w.logger.Info("records saved to CSV fallback",
			slog.String("path", csvPath),
			slog.Int("count", len(w.records)))
		return nil
	}

	w.logger.Info("records saved",
		slog.String("path", w.path),
		slog.Int("count", len(w.records)))
	return nil
}

// Records returns the records accumulated so far.
func (w *Writer) Records() []TurnRecord {
	out := make([]TurnRecord, len(w.records))
	copy(out, w.records)
	return out
}

var recordHeader = []string{
	"Timestamp",
	"User Utterance",
	"Agent Response",
	"Time to First LLM Token (ms)",
	"Time to First Audio Byte (ms)",
}

func recordCell(ms int64) any {
	if ms < 0 {
		return notAvailable
	}
	return ms
}

func writeRecordsXLSX(path string, records []TurnRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(recordHeader))
	for i, h := range recordHeader {
		header[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		return err
	}
	for i, rec := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{rec.Timestamp, rec.UserText, rec.AgentText,
			recordCell(rec.TTFTMillis), recordCell(rec.TTFBMillis)}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeRecordsCSV(path string, records []TurnRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(recordHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{rec.Timestamp, rec.UserText, rec.AgentText,
			fmt.Sprintf("%v", recordCell(rec.TTFTMillis)),
			fmt.Sprintf("%v", recordCell(rec.TTFBMillis))}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
