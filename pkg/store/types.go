// Package store keeps a history of computed usage datasets in BoltDB.
//
// Every render can record a Snapshot: the canonical Dataset together with the
// zone it was bucketed in. Snapshots are keyed by generation time so history
// and show commands can read past results without rescanning the logs.
// Stored counters are exact integers; nothing is abbreviated on disk.
package store

import (
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
)

// Snapshot is one recorded scan result.
type Snapshot struct {
	// Key is the storage key, set by Save and Get.
	Key string `json:"-"`

	// GeneratedAt is when the scan finished.
	GeneratedAt time.Time `json:"generated_at"`

	// Zone label and offset used for day bucketing.
	Zone        string `json:"zone"`
	OffsetHours int    `json:"offset_hours"`

	// Files scanned and skipped as unreadable.
	Files        int `json:"files"`
	FilesSkipped int `json:"files_skipped"`

	// Dataset is the canonical output of the scan.
	Dataset aggregator.Dataset `json:"dataset"`
}

// Info is the listing view of a snapshot.
type Info struct {
	Key            string
	GeneratedAt    time.Time
	Zone           string
	DaysWithData   int
	UniqueMessages int
	TotalTokens    int64
}

// Store persists snapshots.
//
// Thread-safety: all methods are safe for concurrent use.
type Store interface {
	// Save records a snapshot and returns its key. A zero GeneratedAt is
	// replaced with the current time.
	Save(snap *Snapshot) (string, error)

	// Get returns the snapshot stored under key. When no key matches
	// exactly, the oldest snapshot whose key starts with key is returned,
	// so a date such as "2025-01-05" selects the first snapshot of that day.
	Get(key string) (*Snapshot, error)

	// Latest returns the most recent snapshot.
	Latest() (*Snapshot, error)

	// List returns up to limit snapshots, newest first. A limit <= 0
	// returns all of them.
	List(limit int) ([]Info, error)

	// Prune deletes all but the newest keep snapshots and returns the
	// number removed. keep <= 0 removes nothing.
	Prune(keep int) (int, error)

	// Close closes the database.
	Close() error
}

// Config contains store configuration.
type Config struct {
	// DBPath is the BoltDB file. "~/" is expanded.
	DBPath string

	// Timeout for acquiring the file lock.
	// Default: 1 second.
	Timeout time.Duration
}
