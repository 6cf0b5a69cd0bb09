package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/0xmhha/token-calendar/pkg/logger"
)

const (
	// DefaultMaxLineLength bounds a single JSONL line (64MB). Assistant
	// records embed whole tool results, so lines of several MB are normal.
	DefaultMaxLineLength = 64 * 1024 * 1024

	readBufferSize = 64 * 1024

	assistantType = "assistant"
)

// Counter keys inside the usage block.
const (
	keyInputTokens         = "input_tokens"
	keyOutputTokens        = "output_tokens"
	keyCacheReadTokens     = "cache_read_input_tokens"
	keyCacheCreationTokens = "cache_creation_input_tokens"
)

// timestampLayouts are the accepted ISO-8601 forms. A zone designator is
// required; "Z" and "+00:00" are equivalent.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// record is the envelope of one JSONL line. Message stays raw so that a
// non-object message rejects only this line.
type record struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type message struct {
	ID    string                     `json:"id"`
	Usage map[string]json.RawMessage `json:"usage"`
}

type jsonlParser struct {
	config Config
	logger logger.Logger
}

// New creates a Parser.
func New(cfg Config, log logger.Logger) Parser {
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = DefaultMaxLineLength
	}
	return &jsonlParser{
		config: cfg,
		logger: log,
	}
}

// ParseLine implements Parser.ParseLine.
func (p *jsonlParser) ParseLine(line []byte) (*Measurement, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedJSON)
	}

	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	if rec.Type != assistantType {
		return nil, ErrNotAssistant
	}

	if len(rec.Message) == 0 || bytes.Equal(rec.Message, []byte("null")) {
		return nil, fmt.Errorf("%w: no message", ErrMissingUsage)
	}

	var msg message
	if err := json.Unmarshal(rec.Message, &msg); err != nil {
		return nil, fmt.Errorf("%w: message: %v", ErrMalformedJSON, err)
	}

	if len(msg.Usage) == 0 {
		return nil, ErrMissingUsage
	}
	if msg.ID == "" {
		return nil, ErrMissingMessageID
	}
	if rec.Timestamp == "" {
		return nil, ErrMissingTimestamp
	}

	ts, err := parseTimestamp(rec.Timestamp)
	if err != nil {
		return nil, err
	}

	usage, err := decodeUsage(msg.Usage)
	if err != nil {
		return nil, err
	}

	return &Measurement{
		MessageID: msg.ID,
		Timestamp: ts,
		Usage:     usage,
	}, nil
}

// Parse implements Parser.Parse.
func (p *jsonlParser) Parse(line []byte) (Measurement, bool) {
	m, err := p.ParseLine(line)
	if err != nil {
		return Measurement{}, false
	}
	return *m, true
}

// ParseFile implements Parser.ParseFile.
func (p *jsonlParser) ParseFile(path string) ([]Measurement, FileStats, error) {
	var stats FileStats

	// #nosec G304: path comes from discovery or the caller
	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			p.logger.Debug("failed to close file", "path", path, "error", closeErr)
		}
	}()

	measurements := make([]Measurement, 0, 64)
	r := bufio.NewReaderSize(f, readBufferSize)

	for {
		line, tooLong, readErr := readLine(r, p.config.MaxLineLength)
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, stats, fmt.Errorf("%w: read failed after line %d: %v",
				ErrFileUnreadable, stats.Lines, readErr)
		}

		stats.Lines++

		if tooLong {
			stats.Skipped++
			p.logger.Debug("skipping line", "path", path,
				"error", &LineError{Line: stats.Lines, Err: ErrLineTooLong})
			continue
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		m, parseErr := p.ParseLine(line)
		if parseErr != nil {
			stats.Skipped++
			if !errors.Is(parseErr, ErrNotAssistant) {
				p.logger.Debug("skipping line",
					"path", path,
					"error", &LineError{Line: stats.Lines, Err: parseErr})
			}
			continue
		}

		measurements = append(measurements, *m)
		stats.Parsed++
	}

	return measurements, stats, nil
}

// readLine returns the next line without its terminator. Lines longer than
// limit are consumed and reported with tooLong set and no content. io.EOF is
// returned only once no bytes remain.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')

		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case readErr == nil:
			return trimEOL(line), tooLong, nil
		case errors.Is(readErr, bufio.ErrBufferFull):
			continue
		case errors.Is(readErr, io.EOF) && (len(line) > 0 || tooLong):
			// final line without a trailing newline
			return trimEOL(line), tooLong, nil
		default:
			return nil, false, readErr
		}
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// decodeUsage builds a Usage from the raw usage block. Absent or null
// counters are zero; other keys in the block are ignored.
func decodeUsage(raw map[string]json.RawMessage) (Usage, error) {
	var u Usage
	fields := []struct {
		key string
		dst *int64
	}{
		{keyInputTokens, &u.InputTokens},
		{keyOutputTokens, &u.OutputTokens},
		{keyCacheReadTokens, &u.CacheReadInputTokens},
		{keyCacheCreationTokens, &u.CacheCreationInputTokens},
	}

	for _, field := range fields {
		value, ok := raw[field.key]
		if !ok || bytes.Equal(value, []byte("null")) {
			continue
		}
		if err := json.Unmarshal(value, field.dst); err != nil {
			return Usage{}, fmt.Errorf("%w: %s: %v", ErrMalformedJSON, field.key, err)
		}
	}

	if err := u.Validate(); err != nil {
		return Usage{}, err
	}
	return u, nil
}
