package metrics

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Report sheet names.
const (
	sheetDetailed = "Detailed Metrics"
	sheetSummary  = "Summary Statistics"
	sheetEvents   = "Events Log"
	sheetSession  = "Session Info"
)

// notAvailable marks a metric whose required timestamps were not both set.
const notAvailable = "N/A"

// Export writes the session report and returns the path written. With an
// empty path the report lands in the working directory as
// voice_agent_metrics_<sessionID>.xlsx.
//
// The spreadsheet carries four sheets: per-turn detail rows, summary
// statistics over the valid values of each metric column, the raw event
// log, and session info. When the spreadsheet write fails, Export degrades
// to a CSV holding only the detail rows; when that fails too, the error is
// returned for the caller to log. Export never panics and a failed export
// never disturbs the session.
func (tr *Tracker) Export(path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("voice_agent_metrics_%s.xlsx", tr.sessionID)
	}

	turns := tr.Turns()
	events := tr.Events()

	if err := tr.writeWorkbook(path, turns, events); err != nil {
		tr.logger.Error("spreadsheet export failed, falling back to CSV",
			slog.String("path", path),
			slog.String("error", err.Error()))

		csvPath := csvFallbackPath(path)
		if csvErr := writeDetailCSV(csvPath, turns); csvErr != nil {
			tr.logger.Error("CSV fallback export failed",
				slog.String("path", csvPath),
				slog.String("error", csvErr.Error()))
			return "", fmt.Errorf("export failed: %w", csvErr)
		}
		tr.logger.Info("metrics exported to CSV fallback", slog.String("path", csvPath))
		return csvPath, nil
	}

	tr.logger.Info("metrics exported",
		slog.String("path", path),
		slog.Int("turns", len(turns)))
	return path, nil
}

// writeWorkbook builds the four-sheet report with excelize.
func (tr *Tracker) writeWorkbook(path string, turns []*Turn, events []EventRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetDetailed); err != nil {
		return err
	}
	for _, name := range []string{sheetSummary, sheetEvents, sheetSession} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	// Detailed Metrics
	if err := f.SetSheetRow(sheetDetailed, "A1", &[]any{
		"Turn ID", "Timestamp", "User Text", "Assistant Text",
		"EOU Delay (ms)", "TTFT (ms)", "TTFB (ms)", "Total Latency (ms)",
		"LLM Processing Time (ms)", "TTS Processing Time (ms)", "User Speech Duration (ms)",
	}); err != nil {
		return err
	}
	for i, t := range turns {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := detailRow(t)
		if err := f.SetSheetRow(sheetDetailed, cell, &row); err != nil {
			return err
		}
	}

	// Summary Statistics
	if err := f.SetSheetRow(sheetSummary, "A1", &[]any{
		"Metric", "Average", "Min", "Max", "Count",
	}); err != nil {
		return err
	}
	summaryRow := 2
	for _, s := range summarize(turns) {
		cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
		row := []any{s.Header, s.Average, s.Min, s.Max, s.Count}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
		summaryRow++
	}

	// Events Log
	if err := f.SetSheetRow(sheetEvents, "A1", &[]any{"Timestamp", "Event", "Data"}); err != nil {
		return err
	}
	for i, ev := range events {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{ev.At, ev.Kind, ev.Data}
		if err := f.SetSheetRow(sheetEvents, cell, &row); err != nil {
			return err
		}
	}

	// Session Info
	if err := f.SetSheetRow(sheetSession, "A1", &[]any{
		"Session ID", "Session Start", "Total Turns", "Session Duration (minutes)",
	}); err != nil {
		return err
	}
	info := []any{
		tr.sessionID,
		tr.sessionStart.Format(time.RFC3339),
		len(turns),
		time.Since(tr.sessionStart).Minutes(),
	}
	if err := f.SetSheetRow(sheetSession, "A2", &info); err != nil {
		return err
	}

	return f.SaveAs(path)
}

// detailRow renders one turn as a spreadsheet row. Missing metrics carry
// the explicit notAvailable marker instead of a zero.
func detailRow(t *Turn) []any {
	derived := ComputeDerivedMetrics(t)
	row := []any{t.TurnID, t.Timestamp, t.UserText, t.AssistantText}
	for _, col := range MetricColumns {
		if v, ok := derived[col.Key]; ok {
			row = append(row, v)
		} else {
			row = append(row, notAvailable)
		}
	}
	return row
}

// columnSummary holds the statistics of one metric column.
type columnSummary struct {
	Header  string
	Average float64
	Min     float64
	Max     float64
	Count   int
}

// summarize computes average, min, max and count per metric column over
// the valid values only. Columns without a single valid value are omitted.
func summarize(turns []*Turn) []columnSummary {
	derived := make([]map[string]float64, len(turns))
	for i, t := range turns {
		derived[i] = ComputeDerivedMetrics(t)
	}

	var out []columnSummary
	for _, col := range MetricColumns {
		var (
			sum      float64
			min, max float64
			count    int
		)
		for _, d := range derived {
			v, ok := d[col.Key]
			if !ok {
				continue
			}
			if count == 0 || v < min {
				min = v
			}
			if count == 0 || v > max {
				max = v
			}
			sum += v
			count++
		}
		if count == 0 {
			continue
		}
		out = append(out, columnSummary{
			Header:  col.Header,
			Average: sum / float64(count),
			Min:     min,
			Max:     max,
			Count:   count,
		})
	}
	return out
}

// csvFallbackPath maps the spreadsheet path to its CSV fallback.
func csvFallbackPath(path string) string {
	if strings.HasSuffix(path, ".xlsx") {
		return strings.TrimSuffix(path, ".xlsx") + ".csv"
	}
	return path + ".csv"
}

// writeDetailCSV writes only the per-turn detail rows in delimited form.
// Durations are rounded to whole milliseconds here; the CSV is a
// display-oriented fallback, the spreadsheet keeps full precision.
func writeDetailCSV(path string, turns []*Turn) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"Turn ID", "Timestamp", "User Text", "Assistant Text"}
	for _, col := range MetricColumns {
		header = append(header, col.Header)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range turns {
		derived := ComputeDerivedMetrics(t)
		rec := []string{
			fmt.Sprintf("%d", t.TurnID), t.Timestamp, t.UserText, t.AssistantText,
		}
		for _, col := range MetricColumns {
			if v, ok := derived[col.Key]; ok {
				rec = append(rec, fmt.Sprintf("%.0f", v))
			} else {
				rec = append(rec, notAvailable)
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
