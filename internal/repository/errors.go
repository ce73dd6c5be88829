package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a concurrent mutation touched the same document;
	// callers retry with backoff before surfacing the failure.
	ErrConflict = errors.New("repository: conflict")
)
