package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/parser"
	"github.com/0xmhha/token-calendar/pkg/reconciler"
	"github.com/0xmhha/token-calendar/pkg/store"
)

func sampleDaily() *aggregator.Daily {
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	}

	table := reconciler.New(calendar.UTC())
	table.AddAll([]parser.Measurement{
		{MessageID: "m1", Timestamp: at(2025, time.January, 5), Usage: parser.Usage{InputTokens: 1000, OutputTokens: 69}},
		{MessageID: "m2", Timestamp: at(2025, time.January, 20), Usage: parser.Usage{InputTokens: 1000, OutputTokens: 100}},
		{MessageID: "m3", Timestamp: at(2025, time.February, 1), Usage: parser.Usage{CacheReadInputTokens: 17}},
		{MessageID: "m4", Timestamp: at(2024, time.December, 31), Usage: parser.Usage{InputTokens: 100}},
	})
	return aggregator.Build(table.Events())
}

func sampleReport(view aggregator.View) Report {
	return Report{
		Daily: sampleDaily(),
		Zone:  calendar.UTC(),
		View:  view,
		Year:  2025,
		Month: time.January,
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		want   string // Type name
	}{
		{
			name:   "default format (table)",
			config: Config{},
			want:   "*display.tableFormatter",
		},
		{
			name:   "table format",
			config: Config{Format: FormatTable},
			want:   "*display.tableFormatter",
		},
		{
			name:   "json format",
			config: Config{Format: FormatJSON},
			want:   "*display.jsonFormatter",
		},
		{
			name:   "simple format",
			config: Config{Format: FormatSimple},
			want:   "*display.simpleFormatter",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			formatter := New(tt.config)
			if formatter == nil {
				t.Fatal("New() returned nil")
			}

			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("New() type = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewNarrowTerminalIsCompact(t *testing.T) {
	t.Parallel()

	narrow := New(Config{Width: 60}).(*tableFormatter)
	if !narrow.config.Compact {
		t.Error("width 60 should enable compact mode")
	}

	wide := New(Config{Width: 120}).(*tableFormatter)
	if wide.config.Compact {
		t.Error("width 120 should not enable compact mode")
	}
}

func TestFormatTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input int64
		want  string
	}{
		{0, "0"},
		{69, "69"},
		{999, "999"},
		{1000, "1.0K"},
		{1069, "1.1K"},
		{999_999, "1000.0K"},
		{1_000_000, "1.0M"},
		{12_345_678, "12.3M"},
		{2_500_000_000, "2.5B"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			if got := FormatTokens(tt.input); got != tt.want {
				t.Errorf("FormatTokens(%d) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input int64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			if got := formatNumber(tt.input); got != tt.want {
				t.Errorf("formatNumber(%d) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTableFormatter_FormatBreakdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		view    aggregator.View
		compact bool
		want    []string
		notWant []string
	}{
		{
			name:    "month",
			view:    aggregator.ViewMonth,
			want:    []string{"2025-01-05", "2025-01-20", "1,069", "1,100", "2,169", "2,000"},
			notWant: []string{"2025-02-01", "2024-12-31"},
		},
		{
			name:    "month compact",
			view:    aggregator.ViewMonth,
			compact: true,
			want:    []string{"2025-01-05", "1,069", "2,169"},
			notWant: []string{"1,000"},
		},
		{
			name:    "year",
			view:    aggregator.ViewYear,
			want:    []string{"2025-01", "2025-02", "2,186"},
			notWant: []string{"2024"},
		},
		{
			name: "all time",
			view: aggregator.ViewAll,
			want: []string{"2024", "2025", "2,286"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			f := New(Config{Format: FormatTable, Compact: tt.compact})
			if err := f.FormatBreakdown(&buf, sampleReport(tt.view)); err != nil {
				t.Fatalf("FormatBreakdown() error = %v", err)
			}

			output := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(output, s) {
					t.Errorf("output missing %q:\n%s", s, output)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(output, s) {
					t.Errorf("output should not contain %q:\n%s", s, output)
				}
			}
		})
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	t.Parallel()

	r := sampleReport(aggregator.ViewMonth)
	r.Month = time.March

	var buf bytes.Buffer
	f := New(Config{Format: FormatTable})
	if err := f.FormatBreakdown(&buf, r); err != nil {
		t.Fatalf("FormatBreakdown() error = %v", err)
	}
	if err := f.FormatSummary(&buf, r); err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}

	if got := strings.Count(buf.String(), "No usage data."); got != 2 {
		t.Errorf("expected two empty notices, got %d:\n%s", got, buf.String())
	}
}

func TestTableFormatter_FormatSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := New(Config{Format: FormatTable})
	if err := f.FormatSummary(&buf, sampleReport(aggregator.ViewAll)); err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}

	output := buf.String()
	expected := []string{
		"Token Usage: All time",
		"Total Tokens",
		"2,286",
		"Peak Day",
		"2025-01-20 (1.1K)",
		"2024-12-31 to 2025-02-01",
		"Unique Messages",
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q:\n%s", s, output)
		}
	}
}

func TestSimpleFormatter_FormatBreakdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := New(Config{Format: FormatSimple})
	if err := f.FormatBreakdown(&buf, sampleReport(aggregator.ViewMonth)); err != nil {
		t.Fatalf("FormatBreakdown() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}

	if want := "--- Daily Usage Summary (January 2025, UTC) ---"; lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	want := "2025-01-05: Total=    1.1K  In=    1.0K  Out=      69  CacheR=       0  CacheC=       0"
	if lines[1] != want {
		t.Errorf("line = %q, want %q", lines[1], want)
	}
}

func TestSimpleFormatter_FormatSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := New(Config{Format: FormatSimple})
	if err := f.FormatSummary(&buf, sampleReport(aggregator.ViewYear)); err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}

	output := buf.String()
	for _, s := range []string{"Token Usage: 2025", "Total: 2.2K", "Days: 3 (2025-01-05 to 2025-02-01)", "Peak day: 2025-01-20 (1.1K)"} {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q:\n%s", s, output)
		}
	}
}

func TestJSONFormatter_FormatBreakdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f := New(Config{Format: FormatJSON})
	if err := f.FormatBreakdown(&buf, sampleReport(aggregator.ViewMonth)); err != nil {
		t.Fatalf("FormatBreakdown() error = %v", err)
	}

	var got struct {
		View   string `json:"view"`
		Period string `json:"period"`
		Rows   []struct {
			Label       string `json:"label"`
			InputTokens int64  `json:"input_tokens"`
			TotalTokens int64  `json:"total_tokens"`
		} `json:"rows"`
		Totals struct {
			TotalTokens int64 `json:"total_tokens"`
		} `json:"totals"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if got.View != "month" || got.Period != "January 2025" {
		t.Errorf("view/period = %q/%q", got.View, got.Period)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if got.Rows[0].Label != "2025-01-05" || got.Rows[0].TotalTokens != 1069 || got.Rows[0].InputTokens != 1000 {
		t.Errorf("first row = %+v", got.Rows[0])
	}
	if got.Totals.TotalTokens != 2169 {
		t.Errorf("totals = %d, want 2169", got.Totals.TotalTokens)
	}
}

func TestJSONFormatter_FormatSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		report       func() Report
		wantPeak     interface{}
		wantStart    interface{}
		wantMessages interface{}
	}{
		{
			name:         "all time",
			report:       func() Report { return sampleReport(aggregator.ViewAll) },
			wantPeak:     "2025-01-20",
			wantStart:    "2024-12-31",
			wantMessages: float64(4),
		},
		{
			name: "empty month",
			report: func() Report {
				r := sampleReport(aggregator.ViewMonth)
				r.Month = time.June
				return r
			},
			wantPeak:     nil,
			wantStart:    nil,
			wantMessages: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			f := New(Config{Format: FormatJSON, Compact: true})
			if err := f.FormatSummary(&buf, tt.report()); err != nil {
				t.Fatalf("FormatSummary() error = %v", err)
			}

			var got map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("Failed to parse JSON: %v", err)
			}

			if got["peak_day"] != tt.wantPeak {
				t.Errorf("peak_day = %v, want %v", got["peak_day"], tt.wantPeak)
			}
			dr := got["date_range"].(map[string]interface{})
			if dr["start"] != tt.wantStart {
				t.Errorf("date_range.start = %v, want %v", dr["start"], tt.wantStart)
			}
			if got["unique_messages"] != tt.wantMessages {
				t.Errorf("unique_messages = %v, want %v", got["unique_messages"], tt.wantMessages)
			}
		})
	}
}

func TestFormatHistory(t *testing.T) {
	t.Parallel()

	infos := []store.Info{
		{
			Key:            "2025-03-01T10:00:00.000000000Z",
			GeneratedAt:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			Zone:           "Arizona",
			DaysWithData:   12,
			UniqueMessages: 340,
			TotalTokens:    4_500_000,
		},
	}

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatTable, []string{"2025-03-01T10:00:00.000000000Z", "4,500,000", "340", "Arizona"}},
		{FormatSimple, []string{"2025-03-01T10:00:00.000000000Z", "4.5M", "days=12", "messages=340"}},
		{FormatJSON, []string{`"key": "2025-03-01T10:00:00.000000000Z"`, `"total_tokens": 4500000`}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := New(Config{Format: tt.format}).FormatHistory(&buf, infos); err != nil {
				t.Fatalf("FormatHistory() error = %v", err)
			}
			for _, s := range tt.want {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output missing %q:\n%s", s, buf.String())
				}
			}
		})
	}
}

func TestWriteDataset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteDataset(&buf, sampleDaily().Dataset(), true); err != nil {
		t.Fatalf("WriteDataset() error = %v", err)
	}

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Errorf("compact output should be a single line:\n%s", output)
	}
	for _, s := range []string{`"days_with_data":4`, `"unique_messages":4`, `"2025-01-05":{`, `"start":"2024-12-31"`} {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q:\n%s", s, output)
		}
	}
}

func TestTerminalWidthNotATerminal(t *testing.T) {
	t.Parallel()

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := TerminalWidth(f); got != 0 {
		t.Errorf("TerminalWidth() = %d, want 0", got)
	}
}

func TestBrowserCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{"darwin", "open", []string{"/tmp/c.html"}},
		{"linux", "xdg-open", []string{"/tmp/c.html"}},
		{"freebsd", "xdg-open", []string{"/tmp/c.html"}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", "/tmp/c.html"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()

			name, args := browserCommand(tt.goos, "/tmp/c.html")
			if name != tt.wantName || strings.Join(args, " ") != strings.Join(tt.wantArgs, " ") {
				t.Errorf("browserCommand(%q) = %s %v, want %s %v", tt.goos, name, args, tt.wantName, tt.wantArgs)
			}
		})
	}
}

// Benchmark table rendering of a full month.
func BenchmarkTableFormatter_FormatBreakdown(b *testing.B) {
	r := sampleReport(aggregator.ViewMonth)
	f := New(Config{Format: FormatTable})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := f.FormatBreakdown(&buf, r); err != nil {
			b.Fatal(err)
		}
	}
}
