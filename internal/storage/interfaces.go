package storage

import (
	"context"

	"solana-roundup/internal/domain"
)

// WalletStore provides access to wallets storage.
type WalletStore interface {
	// Insert adds a new wallet. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, w *domain.Wallet) error

	// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)

	// List retrieves all wallets ordered by creation time.
	List(ctx context.Context) ([]*domain.Wallet, error)

	// AdvanceLastSeen moves the wallet's last-seen signature pointer.
	// Callers only ever pass the newest signature of a completed sync;
	// the pointer never regresses.
	AdvanceLastSeen(ctx context.Context, address, signature string) error
}

// LedgerStore provides access to ledger_transactions storage.
type LedgerStore interface {
	// InsertAccrual adds a ledger row and increments the wallet's current
	// and lifetime accumulators in a single transaction. Returns
	// ErrDuplicateKey without touching the accumulators if
	// (wallet_address, signature) already exists.
	InsertAccrual(ctx context.Context, row *domain.LedgerTransaction) error

	// GetUnprocessed retrieves all rows for a wallet with is_processed =
	// false, ordered by timestamp ASC.
	GetUnprocessed(ctx context.Context, address string) ([]*domain.LedgerTransaction, error)

	// GetByWallet retrieves up to limit rows for a wallet, newest first.
	// limit <= 0 means no limit.
	GetByWallet(ctx context.Context, address string, limit int) ([]*domain.LedgerTransaction, error)
}

// BatchStore provides access to payout_batches storage.
type BatchStore interface {
	// CreateFromUnprocessed atomically creates a pending batch from every
	// unprocessed ledger row of the wallet: the batch row is inserted with
	// the summed totals, member rows are marked processed and linked to the
	// batch, the wallet accumulator is reset to zero and total_payouts is
	// incremented. No intermediate state is ever observable. Returns
	// ErrNoUnprocessedRows if the wallet has no unprocessed rows.
	CreateFromUnprocessed(ctx context.Context, address, batchID string) (*domain.PayoutBatch, error)

	// GetByID retrieves a batch. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, batchID string) (*domain.PayoutBatch, error)

	// ListByWallet retrieves all batches for a wallet, newest first.
	ListByWallet(ctx context.Context, address string) ([]*domain.PayoutBatch, error)

	// UpdateStatus transitions a batch between statuses. The update is a
	// compare-and-swap on the expected current status; ErrInvalidTransition
	// is returned when the transition is not allowed or the batch is no
	// longer in the expected status. Returns ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, batchID, from, to string) error
}

// AccrualEventStore is a write-optimized analytics sink for accruals.
// The accrual core never reads it back; it exists for reporting only.
type AccrualEventStore interface {
	// InsertBulk appends accrual events projected from ledger rows.
	InsertBulk(ctx context.Context, rows []*domain.LedgerTransaction) error

	// DailyTotals aggregates a wallet's accruals per UTC day, oldest first.
	DailyTotals(ctx context.Context, address string) ([]*domain.AccrualDailyTotal, error)
}
