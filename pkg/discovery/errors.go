package discovery

import "errors"

// Common errors returned by the discovery package.
var (
	// ErrNoRoots is returned when no search root is configured.
	ErrNoRoots = errors.New("no search paths configured")

	// ErrRootNotFound is returned by DiscoverRoot when the root does not exist.
	ErrRootNotFound = errors.New("search path not found")
)
