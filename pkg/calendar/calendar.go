// Package calendar maps instants to calendar days under a fixed UTC offset.
//
// A run uses exactly one Zone. Days are structured Date values; the
// YYYY-MM-DD string form appears only when a Date is serialized.
//
// Example usage:
//
//	zone := calendar.Arizona()
//	day := zone.DateOf(ts) // 2025-01-01T02:00:00Z -> 2024-12-31
//	fmt.Println(day, zone.Label())
package calendar

import (
	"fmt"
	"time"
)

const (
	// MinOffsetHours and MaxOffsetHours bound the offsets in use on Earth.
	MinOffsetHours = -12
	MaxOffsetHours = 14

	// DefaultOffsetHours is the offset used when none is configured.
	// Arizona does not observe daylight saving time, so the offset is fixed.
	DefaultOffsetHours = -7

	dateLayout = "2006-01-02"
)

// Date is a calendar day. The zero Date is used as padding in month grids.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the Date for year, month and day without normalization.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a YYYY-MM-DD day key.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return dateOf(t), nil
}

// String returns the YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Compare returns -1, 0 or +1 as d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.Compare(o) < 0
}

// InMonth reports whether d falls in the given year and month.
func (d Date) InMonth(year int, month time.Month) bool {
	return d.Year == year && d.Month == month
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// MarshalText implements encoding.TextMarshaler so a Date can key a JSON
// object.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func dateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Zone is a fixed UTC offset in whole hours together with its display label.
type Zone struct {
	offsetHours int
	label       string
	loc         *time.Location
}

// NewZone returns the zone for a signed hour offset, labelled "UTC+N" or
// "UTC-N".
func NewZone(offsetHours int) (Zone, error) {
	if offsetHours < MinOffsetHours || offsetHours > MaxOffsetHours {
		return Zone{}, fmt.Errorf("%w: %d hours (allowed %d..%d)",
			ErrOffsetOutOfRange, offsetHours, MinOffsetHours, MaxOffsetHours)
	}
	label := fmt.Sprintf("UTC%+d", offsetHours)
	return Zone{
		offsetHours: offsetHours,
		label:       label,
		loc:         time.FixedZone(label, offsetHours*3600),
	}, nil
}

// UTC returns the zero-offset zone labelled "UTC".
func UTC() Zone {
	return Zone{label: "UTC", loc: time.UTC}
}

// Arizona returns the default zone: UTC-7 labelled "Arizona".
func Arizona() Zone {
	return Zone{
		offsetHours: DefaultOffsetHours,
		label:       "Arizona",
		loc:         time.FixedZone("Arizona", DefaultOffsetHours*3600),
	}
}

// Default returns the zone used when no offset is configured.
func Default() Zone {
	return Arizona()
}

// WithLabel returns a copy of z with a different display label.
func (z Zone) WithLabel(label string) Zone {
	if label != "" {
		z.label = label
	}
	return z
}

// OffsetHours returns the offset from UTC in hours.
func (z Zone) OffsetHours() int {
	return z.offsetHours
}

// Label returns the display label.
func (z Zone) Label() string {
	return z.label
}

// Location returns the zone as a *time.Location.
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// DateOf returns the calendar day of t in z.
func (z Zone) DateOf(t time.Time) Date {
	return dateOf(t.In(z.Location()))
}

// Today returns the current day in z.
func (z Zone) Today() Date {
	return z.DateOf(time.Now())
}

// String returns the label and offset, e.g. "Arizona (UTC-7)".
func (z Zone) String() string {
	offset := fmt.Sprintf("UTC%+d", z.offsetHours)
	if z.label == offset {
		return offset
	}
	return fmt.Sprintf("%s (%s)", z.label, offset)
}
