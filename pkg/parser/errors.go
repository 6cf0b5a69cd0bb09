package parser

import (
	"errors"
	"fmt"
)

// Reasons a line does not produce a Measurement.
var (
	// ErrMalformedJSON is returned when a line is not a JSON object or a
	// field has the wrong type.
	ErrMalformedJSON = errors.New("malformed JSON line")

	// ErrNotAssistant is returned for records whose type is not "assistant".
	ErrNotAssistant = errors.New("not an assistant record")

	// ErrMissingUsage is returned when the message has no usage block or an
	// empty one.
	ErrMissingUsage = errors.New("missing usage block")

	// ErrMissingMessageID is returned when the message id is empty.
	ErrMissingMessageID = errors.New("missing message id")

	// ErrMissingTimestamp is returned when the record has no timestamp.
	ErrMissingTimestamp = errors.New("missing timestamp")

	// ErrInvalidTimestamp is returned when the timestamp is not ISO-8601
	// with a zone designator.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrNegativeTokenCount is returned when any counter is negative.
	ErrNegativeTokenCount = errors.New("invalid token count: must be non-negative")

	// ErrLineTooLong is returned for lines over Config.MaxLineLength.
	ErrLineTooLong = errors.New("line exceeds maximum length")
)

// ErrFileUnreadable wraps open and read failures returned by ParseFile.
var ErrFileUnreadable = errors.New("file unreadable")

// LineError attaches a line number to a rejection reason.
type LineError struct {
	Line int   // 1-indexed
	Err  error // one of the sentinel errors above
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
