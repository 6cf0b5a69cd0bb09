package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0xmhha/token-calendar/pkg/discovery"
	"github.com/0xmhha/token-calendar/pkg/logger"
	"github.com/0xmhha/token-calendar/pkg/pipeline"
	"github.com/0xmhha/token-calendar/pkg/watcher"
)

// monitor implements the Monitor interface.
type monitor struct {
	config    Config
	logger    logger.Logger
	watcher   watcher.Watcher
	discovery discovery.Discoverer
	runner    pipeline.Runner

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}

	latest  *pipeline.Result
	updates chan Update
}

// New creates a new live monitor.
//
// Parameters:
//   - cfg: Monitor configuration
//   - disc: Log discovery
//   - runner: Scan pipeline
//   - w: File watcher
//   - log: Logger instance
//
// Returns:
//   - Configured Monitor
//   - Error if a collaborator is missing
func New(cfg Config, disc discovery.Discoverer, runner pipeline.Runner, w watcher.Watcher, log logger.Logger) (Monitor, error) {
	if disc == nil || runner == nil || w == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("%w: negative debounce %v", ErrInvalidConfig, cfg.Debounce)
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	m := &monitor{
		config:    cfg,
		logger:    log,
		watcher:   w,
		discovery: disc,
		runner:    runner,
		updates:   make(chan Update, 10),
	}

	log.Debug("live monitor created", "debounce", cfg.Debounce, "roots", cfg.Roots)

	return m, nil
}

// Start implements Monitor.Start.
func (m *monitor) Start(ctx context.Context) (err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if m.running {
		m.mu.Unlock()
		return ErrMonitorRunning
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	defer func() {
		if err != nil {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
		}
	}()

	if err := m.rescan(ctx, nil); err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}

	if err := m.watcher.Start(ctx, m.config.Roots); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	m.mu.Lock()
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.processEvents(ctx, stop, done)

	m.logger.Info("live monitor started", "roots", m.config.Roots)
	return nil
}

// Stop implements Monitor.Stop.
func (m *monitor) Stop() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMonitorClosed
	}
	if !m.running {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}

	close(m.stopChan)
	m.running = false
	done := m.done
	m.mu.Unlock()

	if done != nil {
		<-done
	}

	if err := m.watcher.Stop(); err != nil {
		m.logger.Warn("failed to stop watcher", "error", err)
	}

	m.logger.Info("live monitor stopped")
	return nil
}

// Updates implements Monitor.Updates.
func (m *monitor) Updates() <-chan Update {
	return m.updates
}

// Latest implements Monitor.Latest.
func (m *monitor) Latest() *pipeline.Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.latest
}

// Close implements Monitor.Close.
func (m *monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}

	m.closed = true
	wasRunning := m.running
	if m.running {
		close(m.stopChan)
		m.running = false
	}
	done := m.done
	m.mu.Unlock()

	// The event loop is the only other sender on updates.
	if done != nil {
		<-done
	}
	close(m.updates)

	if wasRunning {
		if err := m.watcher.Stop(); err != nil {
			m.logger.Debug("failed to stop watcher", "error", err)
		}
	}

	m.logger.Debug("live monitor closed")
	return nil
}

// processEvents collects watcher events and rescans once they settle.
func (m *monitor) processEvents(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(m.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	var fire <-chan time.Time
	changed := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return

		case <-stop:
			return

		case event, ok := <-m.watcher.Events():
			if !ok {
				m.logger.Debug("watcher events channel closed")
				return
			}

			m.logger.Debug("log change detected", "path", event.Path, "op", event.Op)
			changed[event.Path] = true
			timer.Reset(m.config.Debounce)
			fire = timer.C

		case err, ok := <-m.watcher.Errors():
			if !ok {
				m.logger.Debug("watcher errors channel closed")
				return
			}

			m.logger.Error("watcher error", "error", err)

		case <-fire:
			fire = nil

			paths := make([]string, 0, len(changed))
			for path := range changed {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			changed = make(map[string]bool)

			if err := m.rescan(ctx, paths); err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("rescan failed", "error", err)
			}
		}
	}
}

// rescan runs a complete scan and publishes the result.
func (m *monitor) rescan(ctx context.Context, changed []string) error {
	files, err := m.discovery.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	result, err := m.runner.Run(ctx, discovery.Paths(files))
	if err != nil {
		return err
	}

	m.mu.Lock()
	previous := m.latest
	m.latest = result
	m.mu.Unlock()

	update := Update{
		Timestamp: time.Now(),
		Result:    result,
		Changed:   changed,
		Delta:     delta(previous, result),
	}

	m.logger.Debug("rescan complete",
		"files", len(files),
		"changed", len(changed),
		"delta_tokens", update.Delta.TotalTokens)

	select {
	case m.updates <- update:
	default:
		m.logger.Warn("updates channel full, dropping update")
	}

	return nil
}

// delta compares two scans; a nil previous counts as empty.
func delta(previous, current *pipeline.Result) DeltaStats {
	var d DeltaStats
	if current != nil {
		d.Messages = current.Daily.UniqueEvents()
		d.Days = current.Daily.DaysWithData()
		d.TotalTokens = current.Daily.Totals().TotalTokens
	}
	if previous != nil {
		d.Messages -= previous.Daily.UniqueEvents()
		d.Days -= previous.Daily.DaysWithData()
		d.TotalTokens -= previous.Daily.Totals().TotalTokens
	}
	return d
}
