package calendar

import "errors"

var (
	// ErrOffsetOutOfRange is returned for offsets outside [-12, +14] hours.
	ErrOffsetOutOfRange = errors.New("utc offset out of range")

	// ErrInvalidDate is returned when a day key is not a valid YYYY-MM-DD date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidMonth is returned for months outside 1..12.
	ErrInvalidMonth = errors.New("invalid month")
)
