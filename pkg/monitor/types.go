// Package monitor keeps a usage report current while session logs change.
//
// Every refresh is a complete batch run: discovery, then a fresh pipeline
// scan of every file. Nothing is merged into a previous result, so the
// exactly-once accounting of a single run carries over unchanged.
package monitor

import (
	"context"
	"time"

	"github.com/0xmhha/token-calendar/pkg/pipeline"
)

// Config holds the configuration for the live monitor.
type Config struct {
	// Roots are the directories watched for log changes.
	Roots []string

	// Debounce is the quiet period after the last log event before a
	// rescan starts. Events from several files inside it trigger one scan.
	// Default: 500ms.
	Debounce time.Duration
}

// Monitor rescans session logs when they change.
type Monitor interface {
	// Start runs the initial scan, starts watching and returns. The first
	// update on Updates carries the initial scan.
	Start(ctx context.Context) error

	// Stop stops watching. Updates stays open until Close.
	Stop() error

	// Updates returns the channel of scan results.
	Updates() <-chan Update

	// Latest returns the most recent scan result, or nil before Start.
	Latest() *pipeline.Result

	// Close stops the monitor and closes Updates.
	Close() error
}

// Update represents one completed scan.
type Update struct {
	// Timestamp of the update
	Timestamp time.Time

	// Result of the scan
	Result *pipeline.Result

	// Changed lists the log files whose events triggered the scan; empty
	// for the initial scan.
	Changed []string

	// Delta is the change since the previous scan.
	Delta DeltaStats
}

// DeltaStats represents changes since the last update.
type DeltaStats struct {
	// Messages is the change in unique messages.
	Messages int

	// Days is the change in days with data.
	Days int

	// TotalTokens is the change in the all-time grand total.
	TotalTokens int64
}
