// Package watcher reports changes to session log files under the search
// roots.
//
// It uses fsnotify on every directory below the roots, adds directories
// created while running, and debounces bursts of writes to the same file.
// Only file names that discovery would pick up produce events.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 500 * time.Millisecond,
//	}, log)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, []string{"~/.claude/projects"}); err != nil {
//	    return err
//	}
//
//	for event := range w.Events() {
//	    fmt.Printf("%s %s\n", event.Op, event.Path)
//	}
package watcher

import (
	"context"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created
	OpWrite                 // File modified
	OpRemove                // File deleted
	OpRename                // File renamed/moved
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Event represents a change to one session log.
type Event struct {
	// Path is the file that triggered the event.
	Path string

	// Op is the last operation seen within the debounce interval.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Watcher provides file system monitoring.
type Watcher interface {
	// Start registers the roots and begins delivering events in the
	// background until ctx is cancelled or Stop is called. Missing roots
	// are skipped; at least one must exist.
	Start(ctx context.Context, roots []string) error

	// Stop ends event delivery. Channels stay open until Close.
	Stop() error

	// Events returns the channel of debounced log events.
	// The channel is closed by Close.
	Events() <-chan Event

	// Errors returns non-fatal watcher errors.
	// The channel is closed by Close.
	Errors() <-chan error

	// Close releases resources. Calling it twice is safe.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the quiet period before a file's event is
	// emitted. Events for the same file within it are coalesced.
	// Default: 100ms.
	DebounceInterval time.Duration

	// CircuitBreakerThreshold is the number of fsnotify errors after which
	// ErrCircuitBreakerOpen is reported instead of the error itself.
	// Default: 5.
	CircuitBreakerThreshold int

	// MaxDirs caps the number of watched directories.
	// Default: 8192.
	MaxDirs int

	// ExcludeDirs lists directory names never descended into.
	// Default: .git, node_modules.
	ExcludeDirs []string
}
