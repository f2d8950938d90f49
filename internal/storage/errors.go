package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRegion is returned when a page arrives outside a
	// BeginRegion/CommitRegion window.
	ErrNoRegion = errors.New("no region transaction in progress")
)
