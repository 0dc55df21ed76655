package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when an optimistic write targets a stale version.
	ErrVersionConflict = errors.New("stale entity version")

	// ErrStatusMismatch is returned when a compare-and-set finds an unexpected status.
	ErrStatusMismatch = errors.New("entity status mismatch")

	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate entity")
)
