// Package discovery finds Claude Code session logs under a set of search
// roots.
//
// Every regular file below a root whose name is "<uuid>.jsonl" (a main
// session) or "agent-<hex>.jsonl" (a sub-agent transcript) qualifies. Names
// are matched in lowercase, as Claude Code writes them.
//
// Example usage:
//
//	d := discovery.New([]string{"~/"}, logger.Default())
//	files, err := d.Discover(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range files {
//	    fmt.Printf("%s %s\n", f.Kind, f.Path)
//	}
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	logExt      = ".jsonl"
	agentPrefix = "agent-"
)

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Kind tells main session logs from sub-agent logs.
type Kind string

const (
	// KindSession is a "<uuid>.jsonl" main session log.
	KindSession Kind = "session"

	// KindAgent is an "agent-<hex>.jsonl" sub-agent log.
	KindAgent Kind = "agent"
)

// File is a discovered log file.
type File struct {
	// Path is the path of the file under its search root.
	Path string

	// Kind is the naming pattern the file matched.
	Kind Kind

	// ID is the file name without extension and agent prefix.
	ID string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time
}

// Discoverer finds log files.
type Discoverer interface {
	// Discover walks every configured root and returns the qualifying files
	// sorted by path, without duplicates.
	//
	// Missing roots and unreadable directories are logged and skipped. The
	// only errors are ErrNoRoots and ctx.Err().
	Discover(ctx context.Context) ([]File, error)

	// DiscoverRoot walks a single root.
	DiscoverRoot(ctx context.Context, root string) ([]File, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	roots  []string
	logger Logger
}

// New creates a new Discoverer instance for the given search roots. A
// leading "~" in a root expands to the home directory.
func New(roots []string, logger Logger) Discoverer {
	return &discoverer{
		roots:  roots,
		logger: logger,
	}
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover(ctx context.Context) ([]File, error) {
	if len(d.roots) == 0 {
		return nil, ErrNoRoots
	}

	seen := make(map[string]struct{})
	var all []File

	for _, root := range d.roots {
		files, err := d.DiscoverRoot(ctx, root)
		if err != nil {
			if errors.Is(err, ErrRootNotFound) {
				d.logger.Warn("search path not found, skipping", "path", root)
				continue
			}
			return nil, err
		}

		for _, f := range files {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			all = append(all, f)
		}
	}

	sortByPath(all)
	d.logger.Info("discovery complete", "roots", len(d.roots), "files", len(all))
	return all, nil
}

// DiscoverRoot implements Discoverer.DiscoverRoot.
func (d *discoverer) DiscoverRoot(ctx context.Context, root string) ([]File, error) {
	expanded := filepath.Clean(ExpandHome(root))

	if _, err := os.Stat(expanded); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, expanded)
		}
		d.logger.Warn("cannot access search path", "path", expanded, "error", err)
		return nil, nil
	}

	files := make([]File, 0, 16)
	walkErr := filepath.WalkDir(expanded, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			d.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		// Symlinks are not followed.
		if !entry.Type().IsRegular() {
			return nil
		}

		kind, id, ok := MatchName(entry.Name())
		if !ok {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			d.logger.Debug("failed to get file info", "path", path, "error", err)
			return nil
		}

		files = append(files, File{
			Path:    path,
			Kind:    kind,
			ID:      id,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sortByPath(files)
	d.logger.Debug("scanned search path", "path", expanded, "files_found", len(files))
	return files, nil
}

// MatchName reports whether a base file name is a session or agent log and
// returns its id.
func MatchName(name string) (Kind, string, bool) {
	if !strings.HasSuffix(name, logExt) {
		return "", "", false
	}
	stem := strings.TrimSuffix(name, logExt)

	if hex, ok := strings.CutPrefix(stem, agentPrefix); ok {
		if isLowerHex(hex) {
			return KindAgent, hex, true
		}
		return "", "", false
	}

	if isSessionID(stem) {
		return KindSession, stem, true
	}
	return "", "", false
}

// Paths returns the paths of files in order.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}

// isSessionID accepts only the canonical 36-character lowercase form.
// uuid.Parse also accepts braces, urn prefixes and uppercase, which Claude
// Code never writes.
func isSessionID(id string) bool {
	if len(id) != 36 || strings.ToLower(id) != id {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

// isHexDigit checks if a rune is a lowercase hexadecimal digit.
func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}

func sortByPath(files []File) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
}
