package memory

import (
	"fmt"
	"sync"
	"time"

	"solana-roundup/internal/domain"
)

// Store is the shared in-memory state backing all memory stores. Accrual
// and payout operations span wallets, ledger rows and batches, so a single
// mutex guards all three maps to keep them atomic, mirroring the postgres
// transaction boundaries.
type Store struct {
	mu           sync.RWMutex
	wallets      map[string]*domain.Wallet
	ledger       map[string]*domain.LedgerTransaction // keyed by wallet|signature
	batches      map[string]*domain.PayoutBatch
	nextLedgerID int64
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		wallets: make(map[string]*domain.Wallet),
		ledger:  make(map[string]*domain.LedgerTransaction),
		batches: make(map[string]*domain.PayoutBatch),
	}
}

// ledgerKey generates a unique key for a ledger row.
func ledgerKey(address, signature string) string {
	return fmt.Sprintf("%s|%s", address, signature)
}

// nowMillis returns the current Unix timestamp in milliseconds.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
