package display

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/parser"
	"github.com/0xmhha/token-calendar/pkg/store"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatBreakdown implements Formatter.FormatBreakdown.
func (f *tableFormatter) FormatBreakdown(w io.Writer, r Report) error {
	if err := writeHeader(w, breakdownTitle(r), f.config.Compact); err != nil {
		return err
	}

	rows := breakdown(r)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No usage data.")
		return err
	}

	headers := []string{rowUnit(r.View), "Total"}
	if !f.config.Compact {
		headers = append(headers, "Input", "Output", "Cache Read", "Cache Create")
	}

	table := newTable(w, len(headers))
	table.Header(headers)
	for _, rw := range rows {
		if err := table.Append(f.usageRow(rw.Label, rw.Usage)); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	table.Footer(f.usageRow("Total", r.Daily.Summary(r.View, r.Year, r.Month).Totals.Usage))

	return table.Render()
}

// FormatSummary implements Formatter.FormatSummary.
func (f *tableFormatter) FormatSummary(w io.Writer, r Report) error {
	if err := writeHeader(w, summaryTitle(r), f.config.Compact); err != nil {
		return err
	}

	s := r.Daily.Summary(r.View, r.Year, r.Month)
	if !s.HasData() {
		_, err := fmt.Fprintln(w, "No usage data.")
		return err
	}

	table := newTable(w, 2)
	table.Header([]string{"Metric", "Value"})

	rows := [][]string{
		{"Total Tokens", formatNumber(s.Totals.TotalTokens)},
		{"Input Tokens", formatNumber(s.Totals.InputTokens)},
		{"Output Tokens", formatNumber(s.Totals.OutputTokens)},
		{"Cache Read", formatNumber(s.Totals.CacheReadInputTokens)},
		{"Cache Create", formatNumber(s.Totals.CacheCreationInputTokens)},
		{"Days With Data", formatNumber(int64(s.Days))},
		{"Average Daily", formatFloat(s.AverageDaily, 0)},
		{"Median Daily", formatNumber(s.MedianDaily)},
		{"Peak Day", fmt.Sprintf("%s (%s)", s.PeakDay, FormatTokens(s.PeakTotal))},
		{"Date Range", fmt.Sprintf("%s to %s", s.Start, s.End)},
	}
	if r.View == aggregator.ViewAll {
		rows = append(rows, []string{"Unique Messages", formatNumber(int64(r.Daily.UniqueEvents()))})
	}

	for _, rw := range rows {
		if err := table.Append(rw); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	return table.Render()
}

// FormatHistory implements Formatter.FormatHistory.
func (f *tableFormatter) FormatHistory(w io.Writer, infos []store.Info) error {
	if err := writeHeader(w, "Snapshot History", f.config.Compact); err != nil {
		return err
	}

	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No snapshots recorded.")
		return err
	}

	headers := []string{"Key", "Total"}
	if !f.config.Compact {
		headers = append(headers, "Days", "Messages", "Zone")
	}

	table := newTable(w, len(headers))
	table.Header(headers)
	for _, info := range infos {
		cells := []string{info.Key, formatNumber(info.TotalTokens)}
		if !f.config.Compact {
			cells = append(cells,
				formatNumber(int64(info.DaysWithData)),
				formatNumber(int64(info.UniqueMessages)),
				info.Zone)
		}
		if err := table.Append(cells); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	return table.Render()
}

// usageRow renders a label and its counters, leading with the grand total.
func (f *tableFormatter) usageRow(label string, u parser.Usage) []string {
	cells := []string{label, formatNumber(u.Total())}
	if f.config.Compact {
		return cells
	}
	return append(cells,
		formatNumber(u.InputTokens),
		formatNumber(u.OutputTokens),
		formatNumber(u.CacheReadInputTokens),
		formatNumber(u.CacheCreationInputTokens),
	)
}

// newTable creates a table whose first column is left aligned and the
// remaining numeric columns right aligned.
func newTable(w io.Writer, columns int) *tablewriter.Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off}},
		})),
	)

	alignments := make([]tw.Align, columns)
	for i := range alignments {
		if i == 0 {
			alignments[i] = tw.AlignLeft
		} else {
			alignments[i] = tw.AlignRight
		}
	}
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = alignments
		c.Footer.Alignment.PerColumn = alignments
	})

	return table
}
