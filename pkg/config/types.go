// Package config provides configuration management for token-calendar.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority, through Overrides)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	zone, err := cfg.Zone()
package config

import (
	"fmt"
	"time"

	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/logger"
)

// Config represents the complete application configuration.
//
// Invariants:
// - SearchPaths has at least one entry
// - Timezone.OffsetHours, when set, is within [-12, +14]
// - Calendar.Month is 0..12 and Calendar.Year is >= 0 (0 means current)
// - Storage.Keep >= 0 and Watch.Debounce > 0.
type Config struct {
	// Roots searched for session logs
	SearchPaths []string `yaml:"search_paths"`

	// Day bucketing zone
	Timezone TimezoneConfig `yaml:"timezone"`

	// Period shown by default
	Calendar CalendarConfig `yaml:"calendar"`

	// Report output settings
	Output OutputConfig `yaml:"output"`

	// Snapshot storage settings
	Storage StorageConfig `yaml:"storage"`

	// Watch mode settings
	Watch WatchConfig `yaml:"watch"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// TimezoneConfig selects the fixed UTC offset used for day keys.
type TimezoneConfig struct {
	// Offset from UTC in hours. Unset means UTC-7 labelled "Arizona".
	OffsetHours *int `yaml:"offset_hours,omitempty"`

	// Use UTC; takes precedence over OffsetHours
	UTC bool `yaml:"utc"`

	// Display label replacing the generated one
	Label string `yaml:"label,omitempty"`
}

// CalendarConfig contains the default period and view.
type CalendarConfig struct {
	// Default view (month, year, all)
	DefaultView string `yaml:"default_view"`

	// Year to show; 0 means the current year
	Year int `yaml:"year"`

	// Month to show (1-12); 0 means the current month
	Month int `yaml:"month"`
}

// OutputConfig contains report output settings.
type OutputConfig struct {
	// Path of the generated HTML calendar
	HTMLPath string `yaml:"html_path"`

	// Open the HTML calendar after writing it
	OpenBrowser bool `yaml:"open_browser"`

	// Terminal format (table, simple, json)
	Format string `yaml:"format"`
}

// StorageConfig contains snapshot storage settings.
type StorageConfig struct {
	// Path to BoltDB database file
	DBPath string `yaml:"db_path"`

	// Number of snapshots to keep; 0 keeps all
	Keep int `yaml:"keep"`

	// Do not record snapshots
	Disabled bool `yaml:"disabled"`
}

// WatchConfig contains watch mode settings.
type WatchConfig struct {
	// Quiet period after the last file event before rescanning
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

var (
	validViews   = map[string]bool{"month": true, "year": true, "all": true}
	validFormats = map[string]bool{"table": true, "simple": true, "json": true}
	validLogFmts = map[string]bool{"text": true, "json": true}
)

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if len(c.SearchPaths) == 0 {
		return ErrNoSearchPaths
	}

	if off := c.Timezone.OffsetHours; off != nil &&
		(*off < calendar.MinOffsetHours || *off > calendar.MaxOffsetHours) {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, *off)
	}

	if c.Calendar.Month < 0 || c.Calendar.Month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, c.Calendar.Month)
	}
	if c.Calendar.Year < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, c.Calendar.Year)
	}
	if !validViews[c.Calendar.DefaultView] {
		return ErrInvalidView
	}

	if c.Output.HTMLPath == "" {
		return ErrNoHTMLPath
	}
	if !validFormats[c.Output.Format] {
		return ErrInvalidFormat
	}

	if c.Storage.Keep < 0 {
		return ErrInvalidKeep
	}
	if !c.Storage.Disabled && c.Storage.DBPath == "" {
		return ErrNoDBPath
	}

	if c.Watch.Debounce <= 0 {
		return ErrInvalidDebounce
	}

	if !logger.ValidLevel(c.Logging.Level) {
		return ErrInvalidLogLevel
	}
	if !validLogFmts[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Zone returns the configured day-bucketing zone.
func (c *Config) Zone() (calendar.Zone, error) {
	var zone calendar.Zone
	switch {
	case c.Timezone.UTC:
		zone = calendar.UTC()
	case c.Timezone.OffsetHours == nil:
		zone = calendar.Default()
	default:
		z, err := calendar.NewZone(*c.Timezone.OffsetHours)
		if err != nil {
			return calendar.Zone{}, err
		}
		zone = z
	}
	return zone.WithLabel(c.Timezone.Label), nil
}

// Period returns the year and month to show, filling zeros from today in
// zone.
func (c *Config) Period(zone calendar.Zone) (int, time.Month) {
	today := zone.Today()
	year, month := c.Calendar.Year, time.Month(c.Calendar.Month)
	if year == 0 {
		year = today.Year
	}
	if month == 0 {
		month = today.Month
	}
	return year, month
}

// LoggerConfig converts the logging section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Output: c.Logging.Output,
		Format: c.Logging.Format,
	}
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		SearchPaths: []string{"~/"},
		Calendar: CalendarConfig{
			DefaultView: "month",
		},
		Output: OutputConfig{
			HTMLPath:    defaultHTMLPath(),
			OpenBrowser: true,
			Format:      "table",
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
			Keep:   30,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
