package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/token-calendar/pkg/discovery"
	"github.com/0xmhha/token-calendar/pkg/logger"
)

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}

	// Watched directories.
	dirs   map[string]bool
	dirsMu sync.Mutex

	// Debouncing state.
	debounceTimers map[string]*time.Timer
	pending        map[string]Event
	debounceMu     sync.Mutex

	// Circuit breaker state.
	failureCount int
}

// New creates a new file system watcher.
//
// Parameters:
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Watcher
//   - Error if watcher cannot be created
func New(cfg Config, log logger.Logger) (Watcher, error) {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.MaxDirs == 0 {
		cfg.MaxDirs = 8192
	}
	if cfg.ExcludeDirs == nil {
		cfg.ExcludeDirs = []string{".git", "node_modules"}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:            fsw,
		logger:         log,
		config:         cfg,
		events:         make(chan Event, 100),
		errors:         make(chan error, 10),
		stopChan:       make(chan struct{}),
		dirs:           make(map[string]bool),
		debounceTimers: make(map[string]*time.Timer),
		pending:        make(map[string]Event),
	}

	log.Debug("file watcher created",
		"debounce_interval", cfg.DebounceInterval,
		"max_dirs", cfg.MaxDirs)

	return w, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context, roots []string) (err error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		if err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}
	}()

	expanded := make([]string, 0, len(roots))
	for _, root := range roots {
		path := discovery.ExpandHome(root)

		info, statErr := os.Stat(path)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				w.logger.Warn("watch path does not exist, skipping", "path", path)
				continue
			}
			return fmt.Errorf("failed to stat path %s: %w", path, statErr)
		}
		if !info.IsDir() {
			w.logger.Warn("watch path is not a directory, skipping", "path", path)
			continue
		}

		expanded = append(expanded, path)
	}

	if len(expanded) == 0 {
		return ErrInvalidPath
	}

	for _, path := range expanded {
		if addErr := w.addPathRecursive(path, false); addErr != nil {
			return fmt.Errorf("failed to add path %s: %w", path, addErr)
		}
	}

	w.logger.Info("watcher started",
		"paths", expanded,
		"dirs", w.dirCount())

	go w.processEvents(ctx)

	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false

	w.logger.Debug("watcher stopped")
	return nil
}

// Events implements Watcher.Events.
func (w *watcher) Events() <-chan Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *watcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	if w.running {
		close(w.stopChan)
		w.running = false
	}

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = nil
	w.pending = nil
	w.debounceMu.Unlock()

	// Timer callbacks send under mu.RLock, so none can be mid-send here.
	close(w.events)
	close(w.errors)

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

// processEvents handles events from fsnotify.
func (w *watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Debug("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.handleError(err)
		}
	}
}

// handleEvent processes a single fsnotify event with debouncing.
func (w *watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Logs written before the watch was registered are reported
			// as created.
			if addErr := w.addPathRecursive(event.Name, true); addErr != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", addErr)
			}
			return
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.forgetDir(event.Name)
	}

	if _, _, ok := discovery.MatchName(filepath.Base(event.Name)); !ok {
		return
	}

	var op Op
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		op = OpCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		op = OpWrite
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		op = OpRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		op = OpRename
	default:
		// Chmod does not change content.
		return
	}

	w.debounceEvent(Event{
		Path:      event.Name,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// debounceEvent restarts the quiet period for event.Path.
func (w *watcher) debounceEvent(event Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimers == nil {
		return
	}

	w.pending[event.Path] = event
	if timer, exists := w.debounceTimers[event.Path]; exists {
		timer.Stop()
	}

	w.debounceTimers[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.debounceMu.Lock()
		latest, ok := w.pending[event.Path]
		delete(w.pending, event.Path)
		delete(w.debounceTimers, event.Path)
		w.debounceMu.Unlock()

		if ok {
			w.emit(latest)
		}
	})
}

// emit delivers event unless the watcher is closed or the consumer lags.
func (w *watcher) emit(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}

	select {
	case w.events <- event:
	default:
		w.logger.Warn("event channel full, dropping event", "path", event.Path)
	}
}

// handleError processes fsnotify errors with circuit breaker pattern.
func (w *watcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.failureCount++
	w.logger.Error("fsnotify error",
		"error", err,
		"failure_count", w.failureCount)

	if w.failureCount >= w.config.CircuitBreakerThreshold {
		err = ErrCircuitBreakerOpen
	}

	select {
	case w.errors <- err:
	default:
		w.logger.Warn("error channel full, dropping error")
	}
}

// addPathRecursive adds root and its subdirectories to the watcher. With
// announce set, qualifying files already present are emitted as created.
func (w *watcher) addPathRecursive(root string, announce bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("error walking path", "path", path, "error", err)
			if path == root {
				return err
			}
			return nil
		}

		if !d.IsDir() {
			if announce && d.Type().IsRegular() {
				if _, _, ok := discovery.MatchName(d.Name()); ok {
					w.debounceEvent(Event{Path: path, Op: OpCreate, Timestamp: time.Now()})
				}
			}
			return nil
		}

		if path != root && w.excluded(d.Name()) {
			return fs.SkipDir
		}

		if w.dirCount() >= w.config.MaxDirs {
			w.logger.Warn("watch limit reached, not descending", "path", path, "max_dirs", w.config.MaxDirs)
			return fs.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			if path == root {
				return addErr
			}
			w.logger.Warn("failed to add subdirectory", "path", path, "error", addErr)
			return fs.SkipDir
		}

		w.dirsMu.Lock()
		w.dirs[path] = true
		w.dirsMu.Unlock()
		return nil
	})
}

func (w *watcher) excluded(name string) bool {
	for _, ex := range w.config.ExcludeDirs {
		if name == ex {
			return true
		}
	}
	return false
}

func (w *watcher) forgetDir(path string) {
	w.dirsMu.Lock()
	delete(w.dirs, path)
	w.dirsMu.Unlock()
}

func (w *watcher) dirCount() int {
	w.dirsMu.Lock()
	defer w.dirsMu.Unlock()
	return len(w.dirs)
}
