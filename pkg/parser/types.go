// Package parser turns lines of Claude Code JSONL session logs into usage
// measurements.
//
// Only assistant responses that carry a usage block, a message id and a
// timestamp qualify. Everything else (user turns, summaries, malformed JSON,
// truncated writes) is skipped line by line; a bad line never fails the file.
//
// Example usage:
//
//	p := parser.New(parser.Config{}, logger.Default())
//	measurements, stats, err := p.ParseFile("/path/to/session.jsonl")
//	if err != nil {
//	    // the file could not be read; none of its lines count
//	}
//	fmt.Printf("%d of %d lines qualified\n", stats.Parsed, stats.Lines)
package parser

import (
	"time"
)

// Usage holds the four token counters of one assistant response.
//
// Counters absent from the log are zero. All counters are non-negative.
type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// Total returns the sum of all four counters.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens +
		u.CacheReadInputTokens + u.CacheCreationInputTokens
}

// Max returns the elementwise maximum of u and o.
func (u Usage) Max(o Usage) Usage {
	return Usage{
		InputTokens:              max(u.InputTokens, o.InputTokens),
		OutputTokens:             max(u.OutputTokens, o.OutputTokens),
		CacheReadInputTokens:     max(u.CacheReadInputTokens, o.CacheReadInputTokens),
		CacheCreationInputTokens: max(u.CacheCreationInputTokens, o.CacheCreationInputTokens),
	}
}

// Add returns the elementwise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:              u.InputTokens + o.InputTokens,
		OutputTokens:             u.OutputTokens + o.OutputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens + o.CacheReadInputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens + o.CacheCreationInputTokens,
	}
}

// IsZero reports whether every counter is zero.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// Validate checks that all counters are non-negative.
func (u Usage) Validate() error {
	if u.InputTokens < 0 || u.OutputTokens < 0 ||
		u.CacheReadInputTokens < 0 || u.CacheCreationInputTokens < 0 {
		return ErrNegativeTokenCount
	}
	return nil
}

// Measurement is one qualifying log line: a (possibly partial) emission of
// an assistant response. The same MessageID may appear many times while a
// response streams.
type Measurement struct {
	MessageID string
	Timestamp time.Time
	Usage     Usage
}

// FileStats describes what happened to the lines of one file.
type FileStats struct {
	// Lines is the number of lines read, blank ones included.
	Lines int

	// Parsed is the number of lines that produced a Measurement.
	Parsed int

	// Skipped is the number of non-blank lines that did not qualify.
	Skipped int
}

// Parser extracts measurements from JSONL content.
type Parser interface {
	// ParseLine parses one line, returning why it does not qualify
	// (one of the sentinel errors of this package) when it does not.
	ParseLine(line []byte) (*Measurement, error)

	// Parse is ParseLine with the reason dropped.
	Parse(line []byte) (Measurement, bool)

	// ParseFile parses every line of the file at path.
	//
	// Non-qualifying lines are counted in FileStats and skipped. An error
	// is returned only when the file cannot be opened or read, in which
	// case no measurements are returned: a file counts completely or not
	// at all.
	ParseFile(path string) ([]Measurement, FileStats, error)
}

// Config contains parser configuration.
type Config struct {
	// MaxLineLength bounds the bytes kept for a single line. Longer lines
	// are skipped as ErrLineTooLong.
	// Default: 64MB.
	MaxLineLength int
}
