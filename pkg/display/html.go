package display

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/parser"
)

//go:embed templates/calendar.html
var templateFS embed.FS

var calendarTemplate = template.Must(
	template.New("calendar.html").
		Funcs(template.FuncMap{
			"tokens": FormatTokens,
			"comma":  formatNumber,
		}).
		ParseFS(templateFS, "templates/calendar.html"),
)

// maxIntensity is the number of shaded levels above "low".
const maxIntensity = 5

type htmlPage struct {
	Title       string
	Zone        string
	GeneratedAt string
	View        aggregator.View
	Month       htmlMonth
	Year        htmlYear
	All         htmlAll
}

type htmlMonth struct {
	Name   string
	Weeks  []htmlWeek
	Totals aggregator.Totals
}

type htmlWeek struct {
	Days  []htmlDay
	Total int64
}

type htmlDay struct {
	Day       int
	Usage     parser.Usage
	Total     int64
	Intensity string
}

type htmlYear struct {
	Year   int
	Months []htmlCell
	Stats  htmlStats
}

type htmlAll struct {
	Years []htmlCell
	Stats htmlStats
}

type htmlCell struct {
	Label     string
	Usage     parser.Usage
	Total     int64
	Intensity string
}

type htmlStats struct {
	Totals       aggregator.Totals
	Days         int
	AverageDaily int64
	MedianDaily  int64
	PeakDay      string
	PeakTotal    int64
	Start        string
	End          string
	HasData      bool
}

// WriteHTML renders r as a self-contained HTML calendar. The page holds the
// month, year and all-time views; r.View selects the one shown first.
func WriteHTML(w io.Writer, r Report, generatedAt time.Time) error {
	page := buildPage(r, generatedAt)
	if err := calendarTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render calendar: %w", err)
	}
	return nil
}

// WriteHTMLFile renders r into path, replacing it atomically.
func WriteHTMLFile(path string, r Report, generatedAt time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".calendar-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if err := WriteHTML(tmp, r, generatedAt); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move calendar into place: %w", err)
	}
	return nil
}

func buildPage(r Report, generatedAt time.Time) htmlPage {
	return htmlPage{
		Title:       fmt.Sprintf("Claude Code Token Usage - %s %d (%s)", r.Month, r.Year, r.Zone.Label()),
		Zone:        r.Zone.String(),
		GeneratedAt: generatedAt.In(r.Zone.Location()).Format("2006-01-02 15:04"),
		View:        viewOf(r),
		Month:       buildMonth(r.Daily, r.Year, r.Month),
		Year:        buildYear(r.Daily, r.Year),
		All:         buildAll(r.Daily),
	}
}

func buildMonth(d *aggregator.Daily, year int, month time.Month) htmlMonth {
	var peak int64
	for _, day := range calendar.Days(year, month) {
		u, _ := d.Day(day)
		if t := u.Total(); t > peak {
			peak = t
		}
	}

	weekly := d.WeeklyTotals(year, month)
	grid := calendar.MonthGrid(year, month)
	weeks := make([]htmlWeek, len(grid))
	for i, week := range grid {
		days := make([]htmlDay, len(week))
		for j, day := range week {
			if day.IsZero() {
				continue
			}
			u, _ := d.Day(day)
			days[j] = htmlDay{
				Day:       day.Day,
				Usage:     u,
				Total:     u.Total(),
				Intensity: intensity(u.Total(), peak),
			}
		}
		weeks[i] = htmlWeek{Days: days, Total: weekly[i]}
	}

	return htmlMonth{
		Name:   fmt.Sprintf("%s %d", month, year),
		Weeks:  weeks,
		Totals: aggregator.NewTotals(d.MonthTotal(year, month)),
	}
}

func buildYear(d *aggregator.Daily, year int) htmlYear {
	months := make([]htmlCell, 0, 12)
	var peak int64
	for m := time.January; m <= time.December; m++ {
		u := d.MonthTotal(year, m)
		if t := u.Total(); t > peak {
			peak = t
		}
		months = append(months, htmlCell{Label: m.String()[:3], Usage: u, Total: u.Total()})
	}
	for i := range months {
		months[i].Intensity = intensity(months[i].Total, peak)
	}

	return htmlYear{
		Year:   year,
		Months: months,
		Stats:  buildStats(d.YearSummary(year)),
	}
}

func buildAll(d *aggregator.Daily) htmlAll {
	var years []htmlCell
	var peak int64
	for _, year := range d.Years() {
		u := d.YearTotal(year)
		if t := u.Total(); t > peak {
			peak = t
		}
		years = append(years, htmlCell{Label: fmt.Sprintf("%d", year), Usage: u, Total: u.Total()})
	}
	for i := range years {
		years[i].Intensity = intensity(years[i].Total, peak)
	}

	return htmlAll{
		Years: years,
		Stats: buildStats(d.AllTime()),
	}
}

func buildStats(s aggregator.Summary) htmlStats {
	stats := htmlStats{
		Totals:       s.Totals,
		Days:         s.Days,
		AverageDaily: int64(s.AverageDaily),
		MedianDaily:  s.MedianDaily,
		PeakTotal:    s.PeakTotal,
		HasData:      s.HasData(),
	}
	if s.HasData() {
		stats.PeakDay = s.PeakDay.String()
		stats.Start = s.Start.String()
		stats.End = s.End.String()
	}
	return stats
}

// intensity maps total onto a shading class relative to peak.
func intensity(total, peak int64) string {
	if total <= 0 || peak <= 0 {
		return "intensity-low"
	}
	level := int(total * maxIntensity / peak)
	if level > maxIntensity {
		level = maxIntensity
	}
	if level == 0 {
		return "intensity-low"
	}
	return fmt.Sprintf("intensity-%d", level)
}
