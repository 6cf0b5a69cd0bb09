package calendar

import (
	"fmt"
	"time"
)

// Week is one row of a month grid, Sunday first. Days outside the month are
// zero Dates.
type Week [7]Date

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ValidMonth checks that month is in 1..12.
func ValidMonth(month time.Month) error {
	if month < time.January || month > time.December {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, int(month))
	}
	return nil
}

// MonthGrid lays the days of a month out in Sunday-first weeks. The first
// and last weeks are padded with zero Dates.
func MonthGrid(year int, month time.Month) []Week {
	first := NewDate(year, month, 1)
	lead := int(first.Weekday()) // Sunday == 0
	days := DaysIn(year, month)

	var weeks []Week
	var week Week
	col := lead
	for day := 1; day <= days; day++ {
		week[col] = NewDate(year, month, day)
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = Week{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

// Days returns the days of the given month in order.
func Days(year int, month time.Month) []Date {
	n := DaysIn(year, month)
	out := make([]Date, 0, n)
	for day := 1; day <= n; day++ {
		out = append(out, NewDate(year, month, day))
	}
	return out
}
