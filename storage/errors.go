package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a flow is not found.
	ErrNotFound = errors.New("flow not found")
)
