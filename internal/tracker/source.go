package tracker

import (
	"context"

	"solana-roundup/internal/domain"
)

// TransactionSource fetches a bounded recent window of a wallet's
// transactions, newest-first.
type TransactionSource interface {
	// FetchRecent returns up to limit transactions for the address, no
	// older than lookbackDays. lookbackDays <= 0 disables the age cutoff.
	FetchRecent(ctx context.Context, address string, lookbackDays, limit int) ([]domain.WalletTransaction, error)
}
