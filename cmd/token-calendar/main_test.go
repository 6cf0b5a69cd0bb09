package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/config"
	"github.com/0xmhha/token-calendar/pkg/export"
	"github.com/0xmhha/token-calendar/pkg/monitor"
	"github.com/0xmhha/token-calendar/pkg/parser"
	"github.com/0xmhha/token-calendar/pkg/pipeline"
)

const sessionName = "a1b2c3d4-e5f6-7890-abcd-ef1234567890.jsonl"

func assistantLine(id, ts string, in, out int) string {
	return fmt.Sprintf(`{"type":"assistant","timestamp":%q,"message":{"id":%q,"usage":{"input_tokens":%d,"output_tokens":%d}}}`,
		ts, id, in, out)
}

// fixture isolates the environment and writes one session log. In UTC it
// holds 120 tokens on 2025-01-05 and 55 on 2025-01-06; in Arizona all 175
// fall on 2025-01-05.
type fixture struct {
	home   string
	logs   string
	db     string
	html   string
	common []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{config.EnvConfig, config.EnvSearchPaths, config.EnvTZOffset, config.EnvDB, config.EnvLogLevel} {
		t.Setenv(key, "")
	}

	logs := filepath.Join(home, "logs", "project")
	require.NoError(t, os.MkdirAll(logs, 0700))
	lines := []string{
		assistantLine("m1", "2025-01-05T12:00:00Z", 100, 10),
		assistantLine("m1", "2025-01-05T12:00:01Z", 100, 20),
		`{"type":"user","timestamp":"2025-01-05T12:00:02Z"}`,
		assistantLine("m2", "2025-01-06T03:00:00Z", 50, 5),
	}
	require.NoError(t, os.WriteFile(filepath.Join(logs, sessionName),
		[]byte(strings.Join(lines, "\n")+"\n"), 0600))

	f := &fixture{
		home: home,
		logs: filepath.Join(home, "logs"),
		db:   filepath.Join(home, "snapshots.db"),
		html: filepath.Join(home, "out", "calendar.html"),
	}
	f.common = []string{"-search-path", f.logs, "-db", f.db, "-log-level", "error"}
	return f
}

func (f *fixture) run(t *testing.T, command string, args ...string) (string, error) {
	t.Helper()

	argv := []string{command}
	if command != "config" {
		argv = append(argv, f.common...)
	}
	argv = append(argv, args...)

	var stdout, stderr bytes.Buffer
	err := run(argv, &stdout, &stderr)
	return stdout.String(), err
}

func TestRenderCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "render", "-utc", "-year", "2025", "-month", "1",
		"-output", f.html, "-no-open", "-format", "simple")
	require.NoError(t, err)

	assert.Contains(t, out, "--- Daily Usage Summary (January 2025, UTC) ---")
	assert.Contains(t, out, "2025-01-05: Total=     120")
	assert.Contains(t, out, "2025-01-06: Total=      55")
	assert.NotContains(t, out, "Found", "progress is only shown on a terminal")

	page, err := os.ReadFile(f.html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Claude Code Token Usage - January 2025 (UTC)")

	history, err := f.run(t, "history", "-format", "json")
	require.NoError(t, err)

	var infos []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(history), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, float64(175), infos[0]["total_tokens"])
	assert.Equal(t, float64(2), infos[0]["days_with_data"])
	assert.Equal(t, "UTC", infos[0]["zone"])
}

func TestRenderNoSave(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "render", "-output", f.html, "-no-open", "-no-save")
	require.NoError(t, err)

	_, err = os.Stat(f.db)
	assert.True(t, os.IsNotExist(err), "no database should be created")
}

func TestRenderQuiet(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "render", "-quiet", "-output", f.html, "-no-open", "-no-save")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.FileExists(t, f.html)
}

func TestRenderIsDefaultCommand(t *testing.T) {
	f := newFixture(t)

	args := append([]string{}, f.common...)
	args = append(args, "-output", f.html, "-no-open", "-no-save", "-year", "2025", "-month", "1")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(args, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Daily Usage Summary (January 2025, Arizona)")
	assert.FileExists(t, f.html)
}

func TestJSONCommandZones(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		args     []string
		wantDays map[string]float64
	}{
		{"default zone", nil, map[string]float64{"2025-01-05": 175}},
		{"utc", []string{"-utc"}, map[string]float64{"2025-01-05": 120, "2025-01-06": 55}},
		{"positive offset", []string{"-tz-offset", "14"}, map[string]float64{"2025-01-06": 175}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.run(t, "json", tt.args...)
			require.NoError(t, err)

			var ds aggregator.Dataset
			require.NoError(t, json.Unmarshal([]byte(out), &ds))

			assert.Equal(t, 2, ds.UniqueMessages)
			assert.Equal(t, len(tt.wantDays), ds.DaysWithData)
			assert.Equal(t, int64(175), ds.Totals.TotalTokens)
			for day, want := range tt.wantDays {
				date, err := calendar.ParseDate(day)
				require.NoError(t, err)
				assert.Equal(t, int64(want), ds.DailyUsage[date].Total(), day)
			}
		})
	}
}

func TestSummaryCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "summary", "-utc", "-view", "all", "-format", "json")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "all", got["view"])
	assert.Equal(t, float64(2), got["days_with_data"])
	assert.Equal(t, "2025-01-05", got["peak_day"])
	assert.Equal(t, float64(2), got["unique_messages"])
}

func TestExportCommand(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.home, "export.db")

	out, err := f.run(t, "export", "-utc", "-sqlite", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 days (175 tokens)")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var days int
	var total int64
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), SUM(total_tokens) FROM daily_usage`).Scan(&days, &total))
	assert.Equal(t, 2, days)
	assert.Equal(t, int64(175), total)
}

func TestExportRequiresPath(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "export")
	assert.True(t, errors.Is(err, export.ErrNoPath))
}

func TestShowCommand(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "show")
	assert.Error(t, err, "no snapshot yet")

	_, err = f.run(t, "render", "-tz-offset", "9", "-output", f.html, "-no-open")
	require.NoError(t, err)

	out, err := f.run(t, "show", "-year", "2025", "-month", "1", "-format", "simple")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot ")
	assert.Contains(t, out, "Daily Usage Summary (January 2025, UTC+9)")
	assert.Contains(t, out, "Token Usage: January 2025 (UTC+9)")
	assert.Contains(t, out, "Total: 175")

	year := time.Now().UTC().Format("2006")
	_, err = f.run(t, "show", "-at", year[:2])
	assert.NoError(t, err, "key prefix selects a snapshot")

	_, err = f.run(t, "show", "-at", "1999")
	assert.Error(t, err)
}

func TestInvalidOverrides(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args []string
	}{
		{"offset out of range", []string{"-tz-offset", "20"}},
		{"offset not a number", []string{"-tz-offset", "x"}},
		{"month out of range", []string{"-month", "13"}},
		{"unknown view", []string{"-view", "week"}},
		{"unknown format", []string{"-format", "xml"}},
		{"unknown flag", []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-output", f.html, "-no-open", "-no-save"}, tt.args...)
			_, err := f.run(t, "render", args...)
			assert.Error(t, err)
		})
	}
}

func TestCommandRouting(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"help", []string{"help"}, "Usage:", false},
		{"version command", []string{"version"}, "token-calendar dev", false},
		{"version flag", []string{"-version"}, "token-calendar dev", false},
		{"config help", []string{"config"}, "Subcommands:", false},
		{"unknown", []string{"nope"}, "", true},
		{"unknown config subcommand", []string{"config", "nope"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout.String(), tt.want)
		})
	}
}

func TestConfigCommands(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.home, "cfg", "config.yaml")

	out, err := f.run(t, "config", "init", "-output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Default configuration written to: "+path)

	var stdout bytes.Buffer
	cmd := &configCommand{out: &stdout, in: strings.NewReader("n\n")}
	require.NoError(t, cmd.Execute([]string{"init", "-output", path}))
	assert.Contains(t, stdout.String(), "Init cancelled.")

	out, err = f.run(t, "config", "show", "-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+path)
	assert.Contains(t, out, "default_view: month")

	out, err = f.run(t, "config", "show", "-config", path, "-format", "json")
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "SearchPaths")

	out, err = f.run(t, "config", "path", "-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Active configuration: "+path)
}

func TestConfigFileAppliesToScan(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.home, "token-calendar.yaml")
	yaml := fmt.Sprintf("search_paths: [%q]\ntimezone:\n  utc: true\nstorage:\n  disabled: true\n", f.logs)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"json", "-config", path, "-compact"}, &stdout, &stderr))

	var ds aggregator.Dataset
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &ds))
	assert.Equal(t, 2, ds.DaysWithData)
}

func TestOptionalInt(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var set, unset optionalInt
	fs.Var(&set, "a", "")
	fs.Var(&unset, "b", "")

	require.NoError(t, fs.Parse([]string{"-a", "-7"}))
	require.NotNil(t, set.value)
	assert.Equal(t, -7, *set.value)
	assert.Equal(t, "-7", set.String())
	assert.Nil(t, unset.value)
	assert.Equal(t, "", unset.String())
}

func TestStringList(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var list stringList
	fs.Var(&list, "p", "")

	require.NoError(t, fs.Parse([]string{"-p", "a, b", "-p", "c", "-p", ","}))
	assert.Equal(t, stringList{"a", "b", "c"}, list)
}

func TestStatusLine(t *testing.T) {
	daily := aggregator.FromDataset(aggregator.Dataset{
		DailyUsage: map[calendar.Date]parser.Usage{
			calendar.NewDate(2025, 1, 5): {InputTokens: 2_000_000, OutputTokens: 300_000},
		},
		UniqueMessages: 1204,
	})

	update := monitor.Update{
		Timestamp: time.Date(2025, 1, 5, 21, 3, 7, 0, time.UTC),
		Result:    &pipeline.Result{Daily: daily, Zone: calendar.Arizona()},
		Delta:     monitor.DeltaStats{Messages: 3, TotalTokens: 12400},
	}
	assert.Equal(t, "[14:03:07] 1,204 messages, 2.3M tokens (+3 messages, +12,400 tokens)", statusLine(update))

	update.Delta = monitor.DeltaStats{Messages: -1, TotalTokens: -5}
	assert.Contains(t, statusLine(update), "(-1 messages, -5 tokens)")
}
