package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		present []string
		absent  []string
	}{
		{
			name:    "debug shows everything",
			level:   "debug",
			present: []string{"debug message", "info message", "warn message", "error message"},
		},
		{
			name:    "warn hides debug and info",
			level:   "warn",
			present: []string{"warn message", "error message"},
			absent:  []string{"debug message", "info message"},
		},
		{
			name:    "unknown level behaves as info",
			level:   "verbose",
			present: []string{"info message"},
			absent:  []string{"debug message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := newWithWriter(&buf, Config{Level: tt.level, Format: "text"})

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message")

			content := buf.String()
			for _, want := range tt.present {
				if !strings.Contains(content, want) {
					t.Errorf("output missing %q", want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(content, unwanted) {
					t.Errorf("output should not contain %q", unwanted)
				}
			}
		})
	}
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, Config{Level: "info", Format: "json"})

	log.Named("pipeline").Info("file skipped", "path", "/tmp/a.jsonl")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry["component"] != "pipeline" {
		t.Errorf("component = %v, want pipeline", entry["component"])
	}
	if entry["path"] != "/tmp/a.jsonl" {
		t.Errorf("path = %v, want /tmp/a.jsonl", entry["path"])
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, Config{Level: "info"}).With("run", 7)

	log.Info("scan complete")

	if !strings.Contains(buf.String(), "run=7") {
		t.Errorf("context field missing from %q", buf.String())
	}
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "calendar.log")

	log := New(Config{Level: "info", Output: logFile, Format: "text"})
	log.Info("message 1")
	log.Error("message 2")

	data, err := os.ReadFile(logFile) // nolint:gosec
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "message 1") || !strings.Contains(content, "message 2") {
		t.Errorf("log file missing messages: %q", content)
	}
}

func TestUnwritableOutputFallsBack(t *testing.T) {
	log := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if log == nil {
		t.Fatal("New() returned nil")
	}
	log.Info("still works")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"DEBUG", "DEBUG"},
		{"WaRn", "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLevel(tt.level).String(); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		if !ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = false, want true", level)
		}
	}
	for _, level := range []string{"", "trace", "fatal"} {
		if ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = true, want false", level)
		}
	}
}

func TestNoop(t *testing.T) {
	log := Noop()
	log.Debug("debug")
	log.Named("x").With("k", "v").Error("error")
}

func BenchmarkLogWithFields(b *testing.B) {
	log := Noop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("benchmark message", "path", "/tmp/a.jsonl", "line", 42)
	}
}
