package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoUnprocessedRows is returned when a payout batch is requested
	// for a wallet with no unprocessed ledger rows. The accumulator said
	// the threshold was crossed, so this indicates drift upstream and
	// must not be silently swallowed.
	ErrNoUnprocessedRows = errors.New("no unprocessed ledger rows for wallet")

	// ErrInvalidTransition is returned when a batch status update does
	// not follow pending→processing→{completed,failed}.
	ErrInvalidTransition = errors.New("invalid batch status transition")
)
