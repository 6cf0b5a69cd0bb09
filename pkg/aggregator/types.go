// Package aggregator builds per-day token totals from reconciled events and
// derives month, year and all-time rollups from them.
//
// The per-day mapping is the single source of truth: every rollup is a sum
// over its entries and nothing here looks at raw measurements again.
//
// Example usage:
//
//	daily := aggregator.Build(table.Events())
//
//	june := daily.MonthTotal(2025, time.June)
//	fmt.Printf("June: %d tokens\n", june.Total())
//
//	all := daily.AllTime()
//	fmt.Printf("Peak day: %s (%d tokens)\n", all.PeakDay, all.PeakTotal)
package aggregator

import (
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/parser"
)

// View selects a rollup range.
type View string

const (
	// ViewMonth covers one calendar month.
	ViewMonth View = "month"

	// ViewYear covers one calendar year.
	ViewYear View = "year"

	// ViewAll covers every day with data.
	ViewAll View = "all"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	switch v {
	case ViewMonth, ViewYear, ViewAll:
		return true
	}
	return false
}

// Totals is a usage record together with its grand total.
type Totals struct {
	parser.Usage

	// TotalTokens is the sum of the four counters.
	TotalTokens int64 `json:"total_tokens"`
}

// NewTotals wraps u with its grand total.
func NewTotals(u parser.Usage) Totals {
	return Totals{Usage: u, TotalTokens: u.Total()}
}

// Summary holds the derived statistics of a rollup range.
type Summary struct {
	// Totals is the elementwise sum over the range.
	Totals Totals

	// Days is the number of days in the range with data.
	Days int

	// AverageDaily is Totals.TotalTokens / Days, or 0 when Days is 0.
	AverageDaily float64

	// MedianDaily is the 50th percentile of the daily totals.
	MedianDaily int64

	// PeakDay is the day with the largest total; ties go to the earliest
	// day. Zero when the range has no data.
	PeakDay calendar.Date

	// PeakTotal is the total of PeakDay.
	PeakTotal int64

	// Start and End are the first and last days with data. Zero when the
	// range has no data.
	Start calendar.Date
	End   calendar.Date
}

// HasData reports whether the range contained any day.
func (s Summary) HasData() bool {
	return s.Days > 0
}

// DateRange is the first and last day with data; both are null when there
// is none.
type DateRange struct {
	Start *calendar.Date `json:"start"`
	End   *calendar.Date `json:"end"`
}

// Dataset is the serialized result of a run, handed to every presentation
// layer. Presentation must not re-derive totals from logs.
type Dataset struct {
	DailyUsage     map[calendar.Date]parser.Usage `json:"daily_usage"`
	Totals         Totals                         `json:"totals"`
	DateRange      DateRange                      `json:"date_range"`
	DaysWithData   int                            `json:"days_with_data"`
	UniqueMessages int                            `json:"unique_messages"`
}
