package config

import (
	"os"
	"path/filepath"
)

const appDir = "token-calendar"

// defaultHTMLPath returns the default calendar file path.
//
// Returns: $TMPDIR/claude_usage_calendar.html.
func defaultHTMLPath() string {
	return filepath.Join(os.TempDir(), "claude_usage_calendar.html")
}

// defaultDBPath returns the default snapshot database path.
//
// Returns: ~/.config/token-calendar/snapshots.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./snapshots.db"
	}

	return filepath.Join(homeDir, ".config", appDir, "snapshots.db")
}

// DefaultPath returns the default configuration file path.
//
// Returns: ~/.config/token-calendar/config.yaml.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./token-calendar.yaml"
	}

	return filepath.Join(homeDir, ".config", appDir, "config.yaml")
}
