package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/parser"
)

// compactWidth is the narrowest terminal that fits the full table.
const compactWidth = 80

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}
	if cfg.Width > 0 && cfg.Width < compactWidth {
		cfg.Compact = true
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// TerminalWidth returns the width of f when it is a terminal, or 0.
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd()) // nolint:gosec
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// FormatTokens abbreviates n with a K, M or B suffix and one decimal.
// Values under one thousand are printed as is.
func FormatTokens(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int64) string {
	return humanize.Comma(n)
}

// formatFloat formats a float with specified precision.
func formatFloat(f float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, f)
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	return err
}

// row is one labelled line of a breakdown.
type row struct {
	Label string
	Usage parser.Usage
}

// breakdown returns the rows of r's view that carry data.
func breakdown(r Report) []row {
	var rows []row

	switch r.View {
	case aggregator.ViewAll:
		for _, year := range r.Daily.Years() {
			rows = append(rows, row{Label: fmt.Sprintf("%d", year), Usage: r.Daily.YearTotal(year)})
		}
	case aggregator.ViewYear:
		for m := time.January; m <= time.December; m++ {
			if r.Daily.MonthSummary(r.Year, m).Days == 0 {
				continue
			}
			rows = append(rows, row{
				Label: fmt.Sprintf("%d-%02d", r.Year, int(m)),
				Usage: r.Daily.MonthTotal(r.Year, m),
			})
		}
	default:
		for _, day := range r.Daily.Days() {
			if !day.InMonth(r.Year, r.Month) {
				continue
			}
			u, _ := r.Daily.Day(day)
			rows = append(rows, row{Label: day.String(), Usage: u})
		}
	}

	return rows
}

// periodName names the period of r, e.g. "January 2025", "2025" or "All time".
func periodName(r Report) string {
	switch r.View {
	case aggregator.ViewAll:
		return "All time"
	case aggregator.ViewYear:
		return fmt.Sprintf("%d", r.Year)
	default:
		return fmt.Sprintf("%s %d", r.Month, r.Year)
	}
}

// rowUnit names the breakdown rows of a view.
func rowUnit(view aggregator.View) string {
	switch view {
	case aggregator.ViewAll:
		return "Year"
	case aggregator.ViewYear:
		return "Month"
	default:
		return "Date"
	}
}

// breakdownTitle is the heading printed above a breakdown.
func breakdownTitle(r Report) string {
	kind := "Daily"
	switch r.View {
	case aggregator.ViewAll:
		kind = "Yearly"
	case aggregator.ViewYear:
		kind = "Monthly"
	}
	return fmt.Sprintf("%s Usage Summary (%s, %s)", kind, periodName(r), r.Zone.Label())
}

// summaryTitle is the heading printed above a summary.
func summaryTitle(r Report) string {
	return fmt.Sprintf("Token Usage: %s (%s)", periodName(r), r.Zone)
}
