// Package pipeline runs one complete scan: parse every file, reconcile the
// measurements, then build the per-day totals.
//
// Files are processed one after another and lines in file order. A file that
// cannot be read is skipped as a whole and the scan goes on; a bad line is
// skipped and the file goes on. Nothing in a scan is fatal except
// cancellation of the context.
//
// Example usage:
//
//	runner := pipeline.New(pipeline.Config{Zone: calendar.Arizona()}, log)
//	result, err := runner.Run(ctx, files)
//	if err != nil {
//	    return err // context cancelled
//	}
//	fmt.Println(result.Daily.Totals().TotalTokens)
package pipeline

import (
	"context"
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/parser"
)

// Runner performs scans.
type Runner interface {
	// Run scans files in the given order and returns the aggregated result.
	// Order matters only for which emission of a message id is seen first.
	//
	// The only error is ctx.Err(), checked between files. An empty or
	// fully unreadable file set yields an empty Result, not an error.
	Run(ctx context.Context, files []string) (*Result, error)
}

// Config contains pipeline configuration.
type Config struct {
	// Zone buckets events into days.
	// Default: calendar.Default().
	Zone calendar.Zone

	// Parser configures line parsing.
	Parser parser.Config

	// OnFile, if set, is called after each file with its outcome.
	OnFile func(FileResult)
}

// FileResult is the outcome of one file.
type FileResult struct {
	Path  string
	Stats parser.FileStats

	// Err is set when the file was skipped as unreadable.
	Err error
}

// Result is the outcome of one scan.
type Result struct {
	// Daily holds the per-day totals.
	Daily *aggregator.Daily

	// Zone is the zone days were bucketed in.
	Zone calendar.Zone

	// Files lists every input in scan order.
	Files []FileResult

	// FilesSkipped counts unreadable files.
	FilesSkipped int

	// Measurements counts qualifying lines over all files.
	Measurements int

	// LinesSkipped counts non-qualifying lines over all files.
	LinesSkipped int

	// StartedAt and Duration time the scan.
	StartedAt time.Time
	Duration  time.Duration
}

// Dataset returns the serialized form of the result.
func (r *Result) Dataset() aggregator.Dataset {
	return r.Daily.Dataset()
}
