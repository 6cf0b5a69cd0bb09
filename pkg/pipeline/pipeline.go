package pipeline

import (
	"context"
	"time"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/logger"
	"github.com/0xmhha/token-calendar/pkg/parser"
	"github.com/0xmhha/token-calendar/pkg/reconciler"
)

type runner struct {
	config Config
	parser parser.Parser
	logger logger.Logger
}

// New creates a Runner.
func New(cfg Config, log logger.Logger) Runner {
	if cfg.Zone.Label() == "" {
		cfg.Zone = calendar.Default()
	}
	return &runner{
		config: cfg,
		parser: parser.New(cfg.Parser, log.Named("parser")),
		logger: log,
	}
}

// Run implements Runner.Run.
func (r *runner) Run(ctx context.Context, files []string) (*Result, error) {
	result := &Result{
		Zone:      r.config.Zone,
		Files:     make([]FileResult, 0, len(files)),
		StartedAt: time.Now(),
	}

	// The table lives for this run only; nothing carries over between runs.
	table := reconciler.New(r.config.Zone)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		measurements, stats, err := r.parser.ParseFile(path)
		fr := FileResult{Path: path, Stats: stats, Err: err}

		if err != nil {
			result.FilesSkipped++
			r.logger.Warn("skipping unreadable file", "path", path, "error", err)
		} else {
			table.AddAll(measurements)
			result.Measurements += stats.Parsed
			result.LinesSkipped += stats.Skipped
			r.logger.Debug("file scanned",
				"path", path,
				"lines", stats.Lines,
				"parsed", stats.Parsed,
				"skipped", stats.Skipped)
		}

		result.Files = append(result.Files, fr)
		if r.config.OnFile != nil {
			r.config.OnFile(fr)
		}
	}

	result.Daily = aggregator.Build(table.Events())
	result.Duration = time.Since(result.StartedAt)

	r.logger.Info("scan complete",
		"files", len(files),
		"files_skipped", result.FilesSkipped,
		"measurements", result.Measurements,
		"unique_messages", result.Daily.UniqueEvents(),
		"days", result.Daily.DaysWithData(),
		"zone", result.Zone.Label(),
		"duration", result.Duration)

	return result, nil
}
