// Package main provides the token-calendar CLI application.
//
// Token Calendar reconciles Claude Code session logs into per-day token
// totals and renders them as an HTML calendar, terminal tables, JSON or a
// SQLite export. Every run rescans the logs from scratch.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run routes args to a command. Without a command, or when the first
// argument is a flag, the render command runs.
func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		if len(args) > 0 && (args[0] == "-version" || args[0] == "--version") {
			fmt.Fprintf(stdout, "token-calendar %s\n", version)
			return nil
		}
		return runRenderCommand(args, stdout, stderr)
	}

	command, rest := args[0], args[1:]

	switch command {
	case "render":
		return runRenderCommand(rest, stdout, stderr)
	case "summary":
		return runSummaryCommand(rest, stdout, stderr)
	case "json":
		return runJSONCommand(rest, stdout, stderr)
	case "export":
		return runExportCommand(rest, stdout, stderr)
	case "history":
		return runHistoryCommand(rest, stdout, stderr)
	case "show":
		return runShowCommand(rest, stdout, stderr)
	case "watch":
		return runWatchCommand(rest, stdout, stderr)
	case "config":
		cmd := &configCommand{out: stdout}
		return cmd.Execute(rest)
	case "version":
		fmt.Fprintf(stdout, "token-calendar %s\n", version)
		return nil
	case "help":
		return showUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// showUsage displays usage information.
func showUsage(w io.Writer) error {
	usage := `Token Calendar - daily Claude Code token usage

Usage:
  token-calendar [command] [flags]

Commands:
  render      Scan logs, write the HTML calendar and print the daily summary (default)
  summary     Print month, year or all-time statistics
  json        Print the reconciled per-day dataset as JSON
  export      Write the per-day dataset to a SQLite file
  history     List stored snapshots
  show        Print a stored snapshot
  watch       Re-render the calendar whenever the logs change
  config      Configuration management (show, path, init)
  version     Show version information
  help        Show this help message

Common Flags:
  -config       Path to configuration file
  -search-path  Root to search for session logs (repeatable, comma-separated)
  -utc          Bucket days in UTC
  -tz-offset    Bucket days at a fixed UTC offset in hours (-12..14)
  -db           Path to the snapshot database
  -log-level    Log level (debug, info, warn, error)

Render Flags:
  -month, -year  Period to show (default: current)
  -view          Initial calendar view (month, year, all)
  -output        HTML output path
  -no-open       Do not open the calendar in a browser
  -no-save       Do not record a snapshot
  -quiet         Suppress progress output and the daily summary

Examples:
  # Render the current month in the default zone (UTC-7, "Arizona")
  token-calendar

  # Render March 2025 in UTC without opening a browser
  token-calendar -month 3 -year 2025 -utc -no-open

  # All-time statistics as JSON
  token-calendar summary -view all -format json

  # Export to SQLite
  token-calendar export -sqlite usage.db

  # Show the first snapshot taken on a given day
  token-calendar show -at 2025-03-01

Version: %s
`

	fmt.Fprintf(w, usage, version)
	return nil
}
