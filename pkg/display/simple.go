package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/token-calendar/pkg/parser"
	"github.com/0xmhha/token-calendar/pkg/store"
)

// simpleFormatter formats output as plain lines with abbreviated numbers.
type simpleFormatter struct {
	config Config
}

// FormatBreakdown implements Formatter.FormatBreakdown.
func (f *simpleFormatter) FormatBreakdown(w io.Writer, r Report) error {
	if _, err := fmt.Fprintf(w, "--- %s ---\n", breakdownTitle(r)); err != nil {
		return err
	}

	rows := breakdown(r)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No usage data.")
		return err
	}

	for _, rw := range rows {
		if err := writeUsageLine(w, rw.Label, rw.Usage); err != nil {
			return err
		}
	}
	return nil
}

// FormatSummary implements Formatter.FormatSummary.
func (f *simpleFormatter) FormatSummary(w io.Writer, r Report) error {
	s := r.Daily.Summary(r.View, r.Year, r.Month)

	if _, err := fmt.Fprintf(w, "%s\n", summaryTitle(r)); err != nil {
		return err
	}
	if !s.HasData() {
		_, err := fmt.Fprintln(w, "No usage data.")
		return err
	}

	lines := []string{
		fmt.Sprintf("Total: %s (in %s, out %s, cache read %s, cache create %s)",
			FormatTokens(s.Totals.TotalTokens),
			FormatTokens(s.Totals.InputTokens),
			FormatTokens(s.Totals.OutputTokens),
			FormatTokens(s.Totals.CacheReadInputTokens),
			FormatTokens(s.Totals.CacheCreationInputTokens)),
		fmt.Sprintf("Days: %d (%s to %s)", s.Days, s.Start, s.End),
		fmt.Sprintf("Average daily: %s  Median daily: %s",
			FormatTokens(int64(s.AverageDaily)), FormatTokens(s.MedianDaily)),
		fmt.Sprintf("Peak day: %s (%s)", s.PeakDay, FormatTokens(s.PeakTotal)),
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatHistory implements Formatter.FormatHistory.
func (f *simpleFormatter) FormatHistory(w io.Writer, infos []store.Info) error {
	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%s  %8s  days=%d  messages=%d  %s\n",
			info.Key, FormatTokens(info.TotalTokens),
			info.DaysWithData, info.UniqueMessages, info.Zone); err != nil {
			return err
		}
	}
	return nil
}

// writeUsageLine writes one "label: Total=... In=..." line.
func writeUsageLine(w io.Writer, label string, u parser.Usage) error {
	_, err := fmt.Fprintf(w, "%s: Total=%8s  In=%8s  Out=%8s  CacheR=%8s  CacheC=%8s\n",
		label,
		FormatTokens(u.Total()),
		FormatTokens(u.InputTokens),
		FormatTokens(u.OutputTokens),
		FormatTokens(u.CacheReadInputTokens),
		FormatTokens(u.CacheCreationInputTokens),
	)
	return err
}
