package aggregator

import (
	"slices"
	"sort"
	"time"

	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/parser"
	"github.com/0xmhha/token-calendar/pkg/reconciler"
)

// Daily maps each day to the summed usage of the events assigned to it.
//
// A Daily is immutable once built and safe for concurrent reads.
type Daily struct {
	days   map[calendar.Date]parser.Usage
	keys   []calendar.Date // ascending
	events int
}

// Build sums reconciled events into per-day totals. It must be called once
// reconciliation of every input is complete, since a later measurement can
// still raise a counter of an event already seen.
//
// A day appears as soon as one event is assigned to it, even when that
// event's counters are all zero.
func Build(events []reconciler.Event) *Daily {
	days := make(map[calendar.Date]parser.Usage)
	for _, ev := range events {
		days[ev.Date] = days[ev.Date].Add(ev.Usage)
	}
	return newDaily(days, len(events))
}

// FromDataset rebuilds a Daily from a stored Dataset.
func FromDataset(ds Dataset) *Daily {
	days := make(map[calendar.Date]parser.Usage, len(ds.DailyUsage))
	for day, usage := range ds.DailyUsage {
		days[day] = usage
	}
	return newDaily(days, ds.UniqueMessages)
}

func newDaily(days map[calendar.Date]parser.Usage, events int) *Daily {
	keys := make([]calendar.Date, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Before(keys[j])
	})

	return &Daily{
		days:   days,
		keys:   keys,
		events: events,
	}
}

// Day returns the usage of one day.
func (d *Daily) Day(day calendar.Date) (parser.Usage, bool) {
	u, ok := d.days[day]
	return u, ok
}

// Days returns the days with data in ascending order.
func (d *Daily) Days() []calendar.Date {
	return slices.Clone(d.keys)
}

// DaysWithData returns the number of days with data.
func (d *Daily) DaysWithData() int {
	return len(d.keys)
}

// UniqueEvents returns the number of distinct message ids.
func (d *Daily) UniqueEvents() int {
	return d.events
}

// Totals returns the sum over all days.
func (d *Daily) Totals() Totals {
	return NewTotals(d.sum(func(calendar.Date) bool { return true }))
}

// MonthTotal returns the sum over the days of one month. Months without data
// give a zero Usage.
func (d *Daily) MonthTotal(year int, month time.Month) parser.Usage {
	return d.sum(func(day calendar.Date) bool {
		return day.InMonth(year, month)
	})
}

// YearTotal returns the sum over the days of one year.
func (d *Daily) YearTotal(year int) parser.Usage {
	return d.sum(func(day calendar.Date) bool {
		return day.Year == year
	})
}

// Years returns the years with data in ascending order.
func (d *Daily) Years() []int {
	var years []int
	for _, day := range d.keys {
		if len(years) == 0 || years[len(years)-1] != day.Year {
			years = append(years, day.Year)
		}
	}
	return years
}

// WeeklyTotals returns the grand total of each Sunday-first week of a month,
// counting only days inside the month.
func (d *Daily) WeeklyTotals(year int, month time.Month) []int64 {
	weeks := calendar.MonthGrid(year, month)
	totals := make([]int64, len(weeks))
	for i, week := range weeks {
		for _, day := range week {
			if day.IsZero() {
				continue
			}
			totals[i] += d.days[day].Total()
		}
	}
	return totals
}

// AllTime returns the statistics over every day with data.
func (d *Daily) AllTime() Summary {
	return d.summarize(func(calendar.Date) bool { return true })
}

// MonthSummary returns the statistics of one month.
func (d *Daily) MonthSummary(year int, month time.Month) Summary {
	return d.summarize(func(day calendar.Date) bool {
		return day.InMonth(year, month)
	})
}

// YearSummary returns the statistics of one year.
func (d *Daily) YearSummary(year int) Summary {
	return d.summarize(func(day calendar.Date) bool {
		return day.Year == year
	})
}

// Summary returns the statistics of a view. year and month are ignored
// where the view does not use them.
func (d *Daily) Summary(view View, year int, month time.Month) Summary {
	switch view {
	case ViewYear:
		return d.YearSummary(year)
	case ViewAll:
		return d.AllTime()
	default:
		return d.MonthSummary(year, month)
	}
}

// Dataset returns the serializable form of d.
func (d *Daily) Dataset() Dataset {
	usage := make(map[calendar.Date]parser.Usage, len(d.days))
	for day, u := range d.days {
		usage[day] = u
	}

	ds := Dataset{
		DailyUsage:     usage,
		Totals:         d.Totals(),
		DaysWithData:   len(d.keys),
		UniqueMessages: d.events,
	}
	if len(d.keys) > 0 {
		start, end := d.keys[0], d.keys[len(d.keys)-1]
		ds.DateRange = DateRange{Start: &start, End: &end}
	}
	return ds
}

func (d *Daily) sum(include func(calendar.Date) bool) parser.Usage {
	var total parser.Usage
	for _, day := range d.keys {
		if include(day) {
			total = total.Add(d.days[day])
		}
	}
	return total
}

func (d *Daily) summarize(include func(calendar.Date) bool) Summary {
	var s Summary
	var usage parser.Usage
	totals := make([]int64, 0, len(d.keys))

	for _, day := range d.keys {
		if !include(day) {
			continue
		}
		u := d.days[day]
		usage = usage.Add(u)
		dayTotal := u.Total()
		totals = append(totals, dayTotal)

		// keys are ascending, so strict > keeps the earliest of equal peaks
		if s.Days == 0 || dayTotal > s.PeakTotal {
			s.PeakDay = day
			s.PeakTotal = dayTotal
		}
		if s.Days == 0 {
			s.Start = day
		}
		s.End = day
		s.Days++
	}

	s.Totals = NewTotals(usage)
	if s.Days > 0 {
		s.AverageDaily = float64(s.Totals.TotalTokens) / float64(s.Days)
		slices.Sort(totals)
		s.MedianDaily = percentile(totals, 50)
	}
	return s
}

// percentile calculates the p-th percentile of sorted values.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between closest ranks.
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return int64(float64(sorted[lower])*(1-fraction) + float64(sorted[upper])*fraction)
}
