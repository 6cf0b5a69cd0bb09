package store

import "errors"

var (
	// ErrNotFound indicates no snapshot matches the request.
	ErrNotFound = errors.New("snapshot not found")

	// ErrNoDBPath indicates the configuration has no database path.
	ErrNoDBPath = errors.New("database path not set")

	// ErrCorruptSnapshot indicates a stored value could not be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
