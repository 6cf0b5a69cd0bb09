package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/0xmhha/token-calendar/pkg/discovery"
	"github.com/0xmhha/token-calendar/pkg/display"
	"github.com/0xmhha/token-calendar/pkg/monitor"
	"github.com/0xmhha/token-calendar/pkg/watcher"
)

// watchCommand re-renders the calendar whenever the session logs change.
type watchCommand struct {
	app  *app
	open bool
}

// runWatchCommand runs the watch command.
func runWatchCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("watch", stderr)
	common := addCommonFlags(fs)
	period := addPeriodFlags(fs)
	output := fs.String("output", "", "HTML output path")
	noOpen := fs.Bool("no-open", false, "do not open the calendar in a browser")
	noSave := fs.Bool("no-save", false, "do not record snapshots")
	debounce := fs.Duration("debounce", 0, "quiet period before rescanning (e.g., 500ms, 2s)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	o := common.overrides()
	period.apply(&o)
	o.HTMLPath = *output
	o.NoOpen = *noOpen
	o.NoSave = *noSave

	a, err := newApp(common.configPath, o, stdout)
	if err != nil {
		return err
	}
	if *debounce > 0 {
		a.cfg.Watch.Debounce = *debounce
	}

	ctx, stop := signalContext()
	defer stop()

	cmd := &watchCommand{
		app:  a,
		open: a.cfg.Output.OpenBrowser,
	}
	return cmd.Execute(ctx)
}

// Execute runs the watch command until ctx is cancelled.
func (c *watchCommand) Execute(ctx context.Context) error {
	a := c.app

	w, err := watcher.New(watcher.Config{}, a.log.Named("watcher"))
	if err != nil {
		return err
	}
	defer w.Close() // nolint:errcheck

	mon, err := monitor.New(monitor.Config{
		Roots:    a.cfg.SearchPaths,
		Debounce: a.cfg.Watch.Debounce,
	}, a.newDiscoverer(), a.newRunner(), w, a.log.Named("monitor"))
	if err != nil {
		return err
	}
	defer mon.Close() // nolint:errcheck

	if err := mon.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Watching %s for changes (Ctrl+C to stop)\n", strings.Join(a.cfg.SearchPaths, ", "))

	opened := !c.open
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.stdout, "\nStopped watching")
			return nil

		case update, ok := <-mon.Updates():
			if !ok {
				return nil
			}

			path, err := c.handle(update)
			if err != nil {
				a.log.Error("failed to render calendar", "error", err)
				continue
			}

			if !opened {
				opened = true
				if err := display.OpenBrowser(context.WithoutCancel(ctx), path); err != nil {
					a.log.Warn("failed to open browser", "path", path, "error", err)
				}
			}
		}
	}
}

// handle renders one refresh and prints a status line. The initial scan
// and every refresh that changed the totals are recorded as snapshots.
func (c *watchCommand) handle(update monitor.Update) (string, error) {
	a := c.app
	result := update.Result

	if update.Changed == nil || update.Delta != (monitor.DeltaStats{}) {
		a.saveSnapshot(result)
	}

	path := discovery.ExpandHome(a.cfg.Output.HTMLPath)
	if err := display.WriteHTMLFile(path, a.report(result.Daily, result.Zone), update.Timestamp); err != nil {
		return "", err
	}

	fmt.Fprintln(a.stdout, statusLine(update))
	return path, nil
}

// statusLine summarizes one refresh, e.g.
// "[14:03:07] 1,204 messages, 2.3M tokens (+3 messages, +12,400 tokens)".
func statusLine(update monitor.Update) string {
	result := update.Result
	totals := result.Daily.Totals()

	return fmt.Sprintf("[%s] %s messages, %s tokens (%+d messages, %s tokens)",
		update.Timestamp.In(result.Zone.Location()).Format("15:04:05"),
		humanize.Comma(int64(result.Daily.UniqueEvents())),
		display.FormatTokens(totals.TotalTokens),
		update.Delta.Messages,
		signedComma(update.Delta.TotalTokens))
}

func signedComma(n int64) string {
	if n >= 0 {
		return "+" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}
