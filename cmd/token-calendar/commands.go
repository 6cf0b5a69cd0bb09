package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
	"github.com/0xmhha/token-calendar/pkg/config"
	"github.com/0xmhha/token-calendar/pkg/discovery"
	"github.com/0xmhha/token-calendar/pkg/display"
	"github.com/0xmhha/token-calendar/pkg/export"
	"github.com/0xmhha/token-calendar/pkg/logger"
	"github.com/0xmhha/token-calendar/pkg/pipeline"
	"github.com/0xmhha/token-calendar/pkg/store"
)

// app holds what every command shares once configuration is resolved.
type app struct {
	cfg  *config.Config
	log  logger.Logger
	zone calendar.Zone

	stdout   io.Writer
	progress io.Writer
}

// newApp loads configuration, applies command-line overrides and sets up
// logging.
func newApp(configPath string, o config.Overrides, stdout io.Writer) (*app, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Apply(o); err != nil {
		return nil, err
	}

	zone, err := cfg.Zone()
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      logger.New(cfg.LoggerConfig()),
		zone:     zone,
		stdout:   stdout,
		progress: io.Discard,
	}, nil
}

func (a *app) newDiscoverer() discovery.Discoverer {
	return discovery.New(a.cfg.SearchPaths, a.log.Named("discovery"))
}

func (a *app) newRunner() pipeline.Runner {
	return pipeline.New(pipeline.Config{Zone: a.zone}, a.log.Named("pipeline"))
}

// scan discovers the session logs and runs one complete scan over them.
func (a *app) scan(ctx context.Context) (*pipeline.Result, error) {
	files, err := a.newDiscoverer().Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover logs: %w", err)
	}
	fmt.Fprintf(a.progress, "Found %s log files\n", humanize.Comma(int64(len(files))))

	result, err := a.newRunner().Run(ctx, discovery.Paths(files))
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.progress, "Processed %s usage records, %s unique messages in %s\n",
		humanize.Comma(int64(result.Measurements)),
		humanize.Comma(int64(result.Daily.UniqueEvents())),
		result.Duration.Round(time.Millisecond))
	if result.FilesSkipped > 0 {
		fmt.Fprintf(a.progress, "Skipped %d unreadable files\n", result.FilesSkipped)
	}

	return result, nil
}

// report selects the configured period and view of daily.
func (a *app) report(daily *aggregator.Daily, zone calendar.Zone) display.Report {
	year, month := a.cfg.Period(zone)
	return display.Report{
		Daily: daily,
		Zone:  zone,
		View:  aggregator.View(a.cfg.Calendar.DefaultView),
		Year:  year,
		Month: month,
	}
}

func (a *app) formatter(compact bool) display.Formatter {
	return display.New(display.Config{
		Format:  display.Format(a.cfg.Output.Format),
		Compact: compact,
		Width:   terminalWidth(a.stdout),
	})
}

func (a *app) openStore() (store.Store, error) {
	st, err := store.New(store.Config{DBPath: a.cfg.Storage.DBPath}, a.log.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	return st, nil
}

// saveSnapshot records result unless storage is disabled. Failures are
// logged; they never prevent a report.
func (a *app) saveSnapshot(result *pipeline.Result) {
	if a.cfg.Storage.Disabled {
		return
	}

	st, err := a.openStore()
	if err != nil {
		a.log.Warn("snapshot not saved", "error", err)
		return
	}
	defer func() {
		if err := st.Close(); err != nil {
			a.log.Error("failed to close snapshot store", "error", err)
		}
	}()

	key, err := st.Save(snapshotOf(result))
	if err != nil {
		a.log.Warn("snapshot not saved", "error", err)
		return
	}
	a.log.Debug("snapshot saved", "key", key)

	if removed, err := st.Prune(a.cfg.Storage.Keep); err != nil {
		a.log.Warn("failed to prune snapshots", "error", err)
	} else if removed > 0 {
		a.log.Debug("snapshots pruned", "removed", removed)
	}
}

func snapshotOf(result *pipeline.Result) *store.Snapshot {
	return &store.Snapshot{
		GeneratedAt:  result.StartedAt.Add(result.Duration),
		Zone:         result.Zone.Label(),
		OffsetHours:  result.Zone.OffsetHours(),
		Files:        len(result.Files),
		FilesSkipped: result.FilesSkipped,
		Dataset:      result.Dataset(),
	}
}

// zoneOf rebuilds the zone a snapshot was bucketed in.
func zoneOf(snap *store.Snapshot) (calendar.Zone, error) {
	zone, err := calendar.NewZone(snap.OffsetHours)
	if err != nil {
		return calendar.Zone{}, fmt.Errorf("%w: %v", store.ErrCorruptSnapshot, err)
	}
	return zone.WithLabel(snap.Zone), nil
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return display.TerminalWidth(f)
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) // nolint:gosec
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// renderCommand writes the HTML calendar and prints the daily summary.
type renderCommand struct {
	app   *app
	open  bool
	quiet bool
}

// runRenderCommand runs the render command.
func runRenderCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("render", stderr)
	common := addCommonFlags(fs)
	period := addPeriodFlags(fs)
	output := fs.String("output", "", "HTML output path")
	format := fs.String("format", "", "summary format (table, simple, json)")
	noOpen := fs.Bool("no-open", false, "do not open the calendar in a browser")
	noSave := fs.Bool("no-save", false, "do not record a snapshot")
	quiet := fs.Bool("quiet", false, "suppress progress output and the daily summary")

	if err := fs.Parse(args); err != nil {
		return err
	}

	o := common.overrides()
	period.apply(&o)
	o.HTMLPath = *output
	o.Format = *format
	o.NoOpen = *noOpen
	o.NoSave = *noSave

	a, err := newApp(common.configPath, o, stdout)
	if err != nil {
		return err
	}
	if !*quiet && isTerminal(stdout) {
		a.progress = stdout
	}

	ctx, stop := signalContext()
	defer stop()

	cmd := &renderCommand{
		app:   a,
		open:  a.cfg.Output.OpenBrowser,
		quiet: *quiet,
	}
	return cmd.Execute(ctx)
}

// Execute runs the render command.
func (c *renderCommand) Execute(ctx context.Context) error {
	a := c.app

	result, err := a.scan(ctx)
	if err != nil {
		return err
	}
	a.saveSnapshot(result)

	r := a.report(result.Daily, result.Zone)
	path := discovery.ExpandHome(a.cfg.Output.HTMLPath)
	if err := display.WriteHTMLFile(path, r, result.StartedAt.Add(result.Duration)); err != nil {
		return err
	}
	fmt.Fprintf(a.progress, "Calendar written to %s\n\n", path)

	if !c.quiet {
		if err := a.formatter(false).FormatBreakdown(a.stdout, r); err != nil {
			return fmt.Errorf("failed to print summary: %w", err)
		}
	}

	if c.open {
		// The opener must outlive this process's signal context.
		if err := display.OpenBrowser(context.WithoutCancel(ctx), path); err != nil {
			a.log.Warn("failed to open browser", "path", path, "error", err)
		}
	}
	return nil
}

// runSummaryCommand prints the statistics of one view.
func runSummaryCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("summary", stderr)
	common := addCommonFlags(fs)
	period := addPeriodFlags(fs)
	format := fs.String("format", "", "output format (table, simple, json)")
	compact := fs.Bool("compact", false, "compact output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	o := common.overrides()
	period.apply(&o)
	o.Format = *format

	a, err := newApp(common.configPath, o, stdout)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := a.scan(ctx)
	if err != nil {
		return err
	}

	return a.formatter(*compact).FormatSummary(stdout, a.report(result.Daily, result.Zone))
}

// runJSONCommand prints the canonical dataset.
func runJSONCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("json", stderr)
	common := addCommonFlags(fs)
	compact := fs.Bool("compact", false, "single-line output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(common.configPath, common.overrides(), stdout)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := a.scan(ctx)
	if err != nil {
		return err
	}

	return display.WriteDataset(stdout, result.Dataset(), *compact)
}

// runExportCommand writes the dataset into a SQLite file.
func runExportCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	common := addCommonFlags(fs)
	sqlitePath := fs.String("sqlite", "", "SQLite file to write")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sqlitePath == "" {
		return fmt.Errorf("export: %w (use -sqlite PATH)", export.ErrNoPath)
	}

	a, err := newApp(common.configPath, common.overrides(), stdout)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := a.scan(ctx)
	if err != nil {
		return err
	}

	ds := result.Dataset()
	meta := export.Meta{
		GeneratedAt: result.StartedAt.Add(result.Duration),
		Zone:        result.Zone.Label(),
		OffsetHours: result.Zone.OffsetHours(),
	}
	path := discovery.ExpandHome(*sqlitePath)
	if err := export.WriteSQLite(ctx, path, ds, meta); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Exported %d days (%s tokens) to %s\n",
		ds.DaysWithData, humanize.Comma(ds.Totals.TotalTokens), path)
	return nil
}

// runHistoryCommand lists stored snapshots.
func runHistoryCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("history", stderr)
	common := addCommonFlags(fs)
	limit := fs.Int("limit", 10, "number of snapshots to list (0 for all)")
	format := fs.String("format", "", "output format (table, simple, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	o := common.overrides()
	o.Format = *format

	a, err := newApp(common.configPath, o, stdout)
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck

	infos, err := st.List(*limit)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	return a.formatter(false).FormatHistory(stdout, infos)
}

// runShowCommand prints a stored snapshot without rescanning the logs.
func runShowCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("show", stderr)
	common := addCommonFlags(fs)
	period := addPeriodFlags(fs)
	at := fs.String("at", "", "snapshot key or key prefix such as a date (default: latest)")
	format := fs.String("format", "", "output format (table, simple, json)")
	compact := fs.Bool("compact", false, "compact output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	o := common.overrides()
	period.apply(&o)
	o.Format = *format

	a, err := newApp(common.configPath, o, stdout)
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck

	var snap *store.Snapshot
	if *at == "" {
		snap, err = st.Latest()
	} else {
		snap, err = st.Get(*at)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no snapshot found: %w", err)
	}
	if err != nil {
		return err
	}

	zone, err := zoneOf(snap)
	if err != nil {
		return err
	}
	r := a.report(aggregator.FromDataset(snap.Dataset), zone)
	f := a.formatter(*compact)

	if a.cfg.Output.Format == string(display.FormatJSON) {
		return f.FormatSummary(stdout, r)
	}

	fmt.Fprintf(stdout, "Snapshot %s (generated %s, %d files)\n\n",
		snap.Key, snap.GeneratedAt.In(zone.Location()).Format("2006-01-02 15:04:05"), snap.Files)
	if err := f.FormatBreakdown(stdout, r); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	return f.FormatSummary(stdout, r)
}
