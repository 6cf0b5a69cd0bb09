package display

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
)

var generated = time.Date(2025, 2, 2, 9, 30, 0, 0, time.UTC)

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleReport(aggregator.ViewMonth), generated); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}

	output := buf.String()
	expected := []string{
		"<title>Claude Code Token Usage - January 2025 (UTC)</title>",
		`data-view="month"`,
		"Generated 2025-02-02 09:30",
		"Week Total",
		"Monthly Summary",
		`class="day-cell intensity-5"`,
		`class="day-cell intensity-4"`,
		`title="1,069 tokens"`,
		"In: 1.0K",
		"Out: 69",
		"2.2K",
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q", s)
		}
	}

	// January 2025 starts on a Wednesday and ends on a Friday.
	if got := strings.Count(output, `class="day-cell empty"`); got != 4 {
		t.Errorf("empty cells = %d, want 4", got)
	}
	if got := strings.Count(output, `class="week-row"`); got != 5 {
		t.Errorf("week rows = %d, want 5", got)
	}
}

func TestWriteHTMLViews(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleReport(aggregator.ViewAll), generated); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}

	output := buf.String()
	for _, s := range []string{
		`data-view="all"`,
		`id="view-year"`,
		`id="view-all"`,
		`title="2,186 tokens"`,
		"2.3K",
		"2024-12-31 to 2025-02-01",
	} {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q", s)
		}
	}
}

func TestWriteHTMLNoData(t *testing.T) {
	t.Parallel()

	r := sampleReport(aggregator.ViewMonth)
	r.Daily = aggregator.Build(nil)

	var buf bytes.Buffer
	if err := WriteHTML(&buf, r, generated); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}

	output := buf.String()
	for level := 1; level <= maxIntensity; level++ {
		if strings.Contains(output, fmt.Sprintf(`class="day-cell intensity-%d"`, level)) {
			t.Errorf("empty calendar has a day at intensity %d", level)
		}
	}
	if got := strings.Count(output, `class="day-cell intensity-low"`); got != 31 {
		t.Errorf("unshaded days = %d, want 31", got)
	}
	if !strings.Contains(output, "No usage data.") {
		t.Error("expected empty notice")
	}
}

func TestWriteHTMLFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	path := filepath.Join(dir, "calendar.html")

	for i := 0; i < 2; i++ {
		if err := WriteHTMLFile(path, sampleReport(aggregator.ViewMonth), generated); err != nil {
			t.Fatalf("WriteHTMLFile() error = %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "<!DOCTYPE html>") {
		t.Error("file does not start with a doctype")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the calendar", len(entries))
	}
}

func TestIntensity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, peak int64
		want        string
	}{
		{0, 100, "intensity-low"},
		{10, 0, "intensity-low"},
		{19, 100, "intensity-low"},
		{20, 100, "intensity-1"},
		{59, 100, "intensity-2"},
		{99, 100, "intensity-4"},
		{100, 100, "intensity-5"},
	}

	for _, tt := range tests {
		if got := intensity(tt.total, tt.peak); got != tt.want {
			t.Errorf("intensity(%d, %d) = %q, want %q", tt.total, tt.peak, got, tt.want)
		}
	}
}
