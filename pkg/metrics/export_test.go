package metrics

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/xuri/excelize/v2"
)

func TestExport_ZeroTurns(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	written, err := tr.Export(path)
	is.NoErr(err)
	is.Equal(written, path)

	f, err := excelize.OpenFile(path)
	is.NoErr(err)
	defer f.Close()

	// All four sheets exist even with no turns.
	sheets := f.GetSheetList()
	for _, want := range []string{sheetDetailed, sheetSummary, sheetEvents, sheetSession} {
		found := false
		for _, s := range sheets {
			if s == want {
				found = true
			}
		}
		is.True(found) // sheet must exist
	}

	// Detailed sheet has only the header row.
	rows, err := f.GetRows(sheetDetailed)
	is.NoErr(err)
	is.Equal(len(rows), 1)

	// Session info reports zero turns.
	count, err := f.GetCellValue(sheetSession, "C2")
	is.NoErr(err)
	is.Equal(count, "0")
}

func TestExport_DetailRowsAndSummary(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())
	fixedClock(tr, 10.0, 10.0, 10.2, 10.3)

	tr.StartNewTurn()
	tr.MarkUserSpeechEnd("hello")
	tr.MarkLLMStart()
	tr.MarkLLMFirstToken()
	tr.EndTurn()
	tr.StartNewTurn() // incomplete turn contributes N/A cells

	path := filepath.Join(t.TempDir(), "report.xlsx")
	written, err := tr.Export(path)
	is.NoErr(err)
	is.Equal(written, path)

	f, err := excelize.OpenFile(path)
	is.NoErr(err)
	defer f.Close()

	rows, err := f.GetRows(sheetDetailed)
	is.NoErr(err)
	is.Equal(len(rows), 3) // header + two turns

	// Turn 1 row: eou_delay present, ttfb absent.
	is.Equal(rows[1][0], "1")
	is.Equal(rows[1][2], "hello")
	is.True(rows[1][4] != notAvailable) // EOU Delay computed
	is.Equal(rows[1][6], notAvailable)  // TTFB not computable

	// Turn 2 row: all metric cells N/A.
	is.Equal(rows[2][0], "2")
	for col := 4; col <= 10; col++ {
		is.Equal(rows[2][col], notAvailable)
	}

	// Summary counts only the valid values.
	sumRows, err := f.GetRows(sheetSummary)
	is.NoErr(err)
	foundEOU := false
	for _, row := range sumRows[1:] {
		if row[0] == "EOU Delay (ms)" {
			foundEOU = true
			is.Equal(row[4], "1") // count over valid values only
		}
	}
	is.True(foundEOU)
}

func TestExport_FallbackToCSV(t *testing.T) {
	is := is.New(t)
	tr := NewTracker(slog.Default())
	tr.StartNewTurn()
	tr.MarkUserSpeechEnd("hi")

	// A directory occupying the spreadsheet path makes the primary write
	// fail; the CSV fallback lands beside it under a different name.
	dir := t.TempDir()
	xlsxPath := filepath.Join(dir, "report.xlsx")
	is.NoErr(os.Mkdir(xlsxPath, 0o755))

	written, err := tr.Export(xlsxPath)
	is.NoErr(err) // fallback succeeded, no error escapes
	is.True(strings.HasSuffix(written, ".csv"))

	data, err := os.ReadFile(written)
	is.NoErr(err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	is.Equal(len(lines), 2) // header + one turn
	is.True(strings.Contains(lines[0], "Turn ID"))
	is.True(strings.Contains(lines[1], "hi"))
}

func TestSummarize_SkipsMissingValues(t *testing.T) {
	turns := []*Turn{
		{UserSpeechEnd: 10.0, LLMProcessingStart: 10.1}, // eou 100ms
		{UserSpeechEnd: 20.0, LLMProcessingStart: 20.3}, // eou 300ms
		{UserSpeechEnd: 30.0},                           // not computable
		{},                                              // not computable
	}

	summaries := summarize(turns)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary column, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Header != "EOU Delay (ms)" {
		t.Fatalf("unexpected summary column %q", s.Header)
	}
	if s.Count != 2 {
		t.Errorf("count: expected 2, got %d", s.Count)
	}
	if !approx(s.Average, 200) {
		t.Errorf("average: expected 200, got %.3f", s.Average)
	}
	if !approx(s.Min, 100) {
		t.Errorf("min: expected 100, got %.3f", s.Min)
	}
	if !approx(s.Max, 300) {
		t.Errorf("max: expected 300, got %.3f", s.Max)
	}
}

func TestCSVFallbackPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.xlsx", "report.csv"},
		{"metrics/session.xlsx", "metrics/session.csv"},
		{"oddname", "oddname.csv"},
	}
	for _, tt := range tests {
		if got := csvFallbackPath(tt.in); got != tt.want {
			t.Errorf("csvFallbackPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
