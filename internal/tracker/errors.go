package tracker

import "errors"

// Tracker errors.
var (
	// ErrInvalidAddress is returned when a wallet address fails validation.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrWalletNotFound is returned when syncing an unregistered wallet.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrFetchFailed is returned when the transaction source fails; the
	// whole sync aborts and the last-seen pointer is untouched.
	ErrFetchFailed = errors.New("transaction fetch failed")
)
