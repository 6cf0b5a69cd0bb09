// Package display renders usage rollups for the terminal and as an HTML
// calendar.
//
// Terminal output supports three formats (table, JSON, simple text). All
// formatters read from an aggregator.Daily and never re-derive totals;
// abbreviated numbers are produced only at render time.
package display

import (
	"io"
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/store"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays rollups in a formatted table.
	FormatTable Format = "table"

	// FormatJSON displays rollups as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays rollups as one line per row.
	FormatSimple Format = "simple"
)

// Report selects what to render from a Daily.
type Report struct {
	// Daily is the aggregated dataset.
	Daily *aggregator.Daily

	// Zone used to bucket the data, shown in titles.
	Zone calendar.Zone

	// View selects month, year or all-time.
	View aggregator.View

	// Year and Month pick the period for month and year views.
	Year  int
	Month time.Month
}

// Formatter formats and displays usage rollups.
type Formatter interface {
	// FormatBreakdown writes one row per day of the report month, per
	// month of the report year, or per year for the all-time view.
	// Only rows with data are listed; the footer carries the period total.
	FormatBreakdown(w io.Writer, r Report) error

	// FormatSummary writes the statistics of the report's view.
	FormatSummary(w io.Writer, r Report) error

	// FormatHistory writes a list of stored snapshots.
	FormatHistory(w io.Writer, infos []store.Info) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// Compact enables compact output (less whitespace, fewer columns).
	// Default: false.
	Compact bool

	// Width is the terminal width in columns; 0 means unknown. Tables
	// narrower than compactWidth drop the per-counter columns.
	Width int
}
