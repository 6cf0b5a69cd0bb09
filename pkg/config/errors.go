package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoSearchPaths is returned when no search path is specified.
	ErrNoSearchPaths = errors.New("no search paths specified")

	// ErrInvalidOffset is returned when the UTC offset is outside [-12, +14].
	ErrInvalidOffset = errors.New("invalid timezone offset: must be between -12 and +14 hours")

	// ErrInvalidMonth is returned when the month is outside 0..12.
	ErrInvalidMonth = errors.New("invalid month: must be 1-12, or 0 for current")

	// ErrInvalidYear is returned when the year is negative.
	ErrInvalidYear = errors.New("invalid year: must be > 0, or 0 for current")

	// ErrInvalidView is returned when the default view is not recognized.
	ErrInvalidView = errors.New("invalid view: must be month, year, or all")

	// ErrNoHTMLPath is returned when the HTML output path is empty.
	ErrNoHTMLPath = errors.New("no HTML output path specified")

	// ErrInvalidFormat is returned when the output format is not recognized.
	ErrInvalidFormat = errors.New("invalid output format: must be table, simple, or json")

	// ErrNoDBPath is returned when storage is enabled without a database path.
	ErrNoDBPath = errors.New("no snapshot database path specified")

	// ErrInvalidKeep is returned when snapshot retention is negative.
	ErrInvalidKeep = errors.New("invalid snapshot retention: must be >= 0")

	// ErrInvalidDebounce is returned when the watch debounce is <= 0.
	ErrInvalidDebounce = errors.New("invalid watch debounce: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidEnv is returned when an environment override cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
