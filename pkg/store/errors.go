package store

import "errors"

// Sentinel errors surfaced by Open and the write path. Callers map these
// onto the API-layer HTTP status via errors.Is.
var (
	// ErrInvalidNamespace indicates the namespace identifier failed the
	// format check before any path construction was attempted.
	ErrInvalidNamespace = errors.New("invalid namespace identifier")

	// ErrSchemaMismatch indicates the store file's user_version does not
	// match the version this binary expects. The namespace is refused.
	ErrSchemaMismatch = errors.New("schema version mismatch")

	// ErrBusy indicates the store could not acquire a write lock within
	// the bounded busy-wait deadline.
	ErrBusy = errors.New("store busy")

	// ErrIO wraps unexpected filesystem/driver failures.
	ErrIO = errors.New("store io error")
)
