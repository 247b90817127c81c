package storage

import "errors"

var (
	// ErrNotFound is returned when a trade id or run id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a trade id or snapshot run id is
	// already stored. Ledger rows and snapshots are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key: already recorded")

	// ErrInvalidInput is returned for trades or snapshots that fail
	// validation.
	ErrInvalidInput = errors.New("invalid input")
)
