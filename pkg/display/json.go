package display

import (
	"encoding/json"
	"io"
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/store"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

type breakdownRow struct {
	Label string `json:"label"`
	aggregator.Totals
}

type breakdownJSON struct {
	View   aggregator.View   `json:"view"`
	Period string            `json:"period"`
	Zone   string            `json:"zone"`
	Rows   []breakdownRow    `json:"rows"`
	Totals aggregator.Totals `json:"totals"`
}

type summaryJSON struct {
	View           aggregator.View      `json:"view"`
	Period         string               `json:"period"`
	Zone           string               `json:"zone"`
	Totals         aggregator.Totals    `json:"totals"`
	DaysWithData   int                  `json:"days_with_data"`
	AverageDaily   float64              `json:"average_daily"`
	MedianDaily    int64                `json:"median_daily"`
	PeakDay        *calendar.Date       `json:"peak_day"`
	PeakTotal      int64                `json:"peak_total"`
	DateRange      aggregator.DateRange `json:"date_range"`
	UniqueMessages *int                 `json:"unique_messages,omitempty"`
}

type historyJSON struct {
	Key            string    `json:"key"`
	GeneratedAt    time.Time `json:"generated_at"`
	Zone           string    `json:"zone"`
	DaysWithData   int       `json:"days_with_data"`
	UniqueMessages int       `json:"unique_messages"`
	TotalTokens    int64     `json:"total_tokens"`
}

// FormatBreakdown implements Formatter.FormatBreakdown.
func (f *jsonFormatter) FormatBreakdown(w io.Writer, r Report) error {
	out := breakdownJSON{
		View:   viewOf(r),
		Period: periodName(r),
		Zone:   r.Zone.Label(),
		Rows:   []breakdownRow{},
		Totals: r.Daily.Summary(r.View, r.Year, r.Month).Totals,
	}
	for _, rw := range breakdown(r) {
		out.Rows = append(out.Rows, breakdownRow{Label: rw.Label, Totals: aggregator.NewTotals(rw.Usage)})
	}

	return f.encode(w, out)
}

// FormatSummary implements Formatter.FormatSummary.
func (f *jsonFormatter) FormatSummary(w io.Writer, r Report) error {
	s := r.Daily.Summary(r.View, r.Year, r.Month)

	out := summaryJSON{
		View:         viewOf(r),
		Period:       periodName(r),
		Zone:         r.Zone.Label(),
		Totals:       s.Totals,
		DaysWithData: s.Days,
		AverageDaily: s.AverageDaily,
		MedianDaily:  s.MedianDaily,
		PeakTotal:    s.PeakTotal,
	}
	if s.HasData() {
		peak, start, end := s.PeakDay, s.Start, s.End
		out.PeakDay = &peak
		out.DateRange = aggregator.DateRange{Start: &start, End: &end}
	}
	if r.View == aggregator.ViewAll {
		n := r.Daily.UniqueEvents()
		out.UniqueMessages = &n
	}

	return f.encode(w, out)
}

// FormatHistory implements Formatter.FormatHistory.
func (f *jsonFormatter) FormatHistory(w io.Writer, infos []store.Info) error {
	out := make([]historyJSON, 0, len(infos))
	for _, info := range infos {
		out = append(out, historyJSON(info))
	}
	return f.encode(w, out)
}

func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(v)
}

// WriteDataset writes the canonical dataset as JSON.
func WriteDataset(w io.Writer, ds aggregator.Dataset, compact bool) error {
	f := &jsonFormatter{config: Config{Compact: compact}}
	return f.encode(w, ds)
}

func viewOf(r Report) aggregator.View {
	if r.View == "" {
		return aggregator.ViewMonth
	}
	return r.View
}
