package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig      = "TOKEN_CALENDAR_CONFIG"
	EnvSearchPaths = "TOKEN_CALENDAR_SEARCH_PATHS"
	EnvTZOffset    = "TOKEN_CALENDAR_TZ_OFFSET"
	EnvDB          = "TOKEN_CALENDAR_DB"
	EnvLogLevel    = "TOKEN_CALENDAR_LOG_LEVEL"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file. Keys missing
	// from the file keep their default values.
	LoadFromFile(path string) (*Config, error)

	// Path returns the config file Load reads, or "" when there is none.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, $TOKEN_CALENDAR_CONFIG is used, then the first
// existing file of:
// 1. ./token-calendar.yaml (current directory)
// 2. ~/.config/token-calendar/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	// A file that exists must load, whether named or discovered.
	if configPath := l.Path(); configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	if err := applyEnvVars(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	return findConfigFile()
}

// findConfigFile returns the first existing standard config file, or "".
func findConfigFile() string {
	candidates := []string{
		"./token-calendar.yaml",
		DefaultPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - TOKEN_CALENDAR_SEARCH_PATHS: Comma-separated list of search roots
//   - TOKEN_CALENDAR_TZ_OFFSET: UTC offset in hours
//   - TOKEN_CALENDAR_DB: Path to snapshot database
//   - TOKEN_CALENDAR_LOG_LEVEL: Log level
func applyEnvVars(cfg *Config) error {
	if envPaths := os.Getenv(EnvSearchPaths); envPaths != "" {
		cfg.SearchPaths = splitList(envPaths)
	}

	if offset := os.Getenv(EnvTZOffset); offset != "" {
		hours, err := strconv.Atoi(strings.TrimSpace(offset))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, EnvTZOffset, offset, err)
		}
		cfg.Timezone.OffsetHours = &hours
		cfg.Timezone.UTC = false
		cfg.Timezone.Label = ""
	}

	if dbPath := os.Getenv(EnvDB); dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		cfg.Logging.Level = strings.ToLower(logLevel)
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Overrides carries command-line values. Nil and empty fields leave the
// configuration unchanged.
type Overrides struct {
	SearchPaths []string
	OffsetHours *int
	UTC         bool
	Year        *int
	Month       *int
	View        string
	HTMLPath    string
	NoOpen      bool
	Format      string
	DBPath      string
	NoSave      bool
	LogLevel    string
}

// Apply layers command-line overrides on top of c and validates the result.
// UTC wins over an explicit offset.
func (c *Config) Apply(o Overrides) error {
	if len(o.SearchPaths) > 0 {
		c.SearchPaths = o.SearchPaths
	}
	if o.OffsetHours != nil {
		hours := *o.OffsetHours
		c.Timezone = TimezoneConfig{OffsetHours: &hours}
	}
	if o.UTC {
		c.Timezone = TimezoneConfig{UTC: true}
	}
	if o.Year != nil {
		c.Calendar.Year = *o.Year
	}
	if o.Month != nil {
		c.Calendar.Month = *o.Month
	}
	if o.View != "" {
		c.Calendar.DefaultView = o.View
	}
	if o.HTMLPath != "" {
		c.Output.HTMLPath = o.HTMLPath
	}
	if o.NoOpen {
		c.Output.OpenBrowser = false
	}
	if o.Format != "" {
		c.Output.Format = o.Format
	}
	if o.DBPath != "" {
		c.Storage.DBPath = o.DBPath
	}
	if o.NoSave {
		c.Storage.Disabled = true
	}
	if o.LogLevel != "" {
		c.Logging.Level = strings.ToLower(o.LogLevel)
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
