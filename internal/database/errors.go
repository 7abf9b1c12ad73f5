package database

import "errors"

var (
	// ErrStoreUnavailable means the local database file exists but cannot be
	// opened or fails the integrity check. The Manager recovers by moving the
	// corrupt file aside and starting fresh, which is an explicit, logged
	// data-loss event.
	ErrStoreUnavailable = errors.New("metadata store unavailable")

	// ErrConstraintViolation is the (user_id, filename) unique-key safety net.
	// Hitting it means a collision slipped past detection; treat as a bug signal.
	ErrConstraintViolation = errors.New("filename already exists for user")

	// ErrNotFound means an update targeted an id with no matching row.
	ErrNotFound = errors.New("photo not found")
)
