package memory

import (
	"context"
	"sort"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
)

var _ storage.LedgerStore = (*Store)(nil)

// InsertAccrual adds a ledger row and increments the wallet's accumulators
// atomically. Returns ErrDuplicateKey without touching the accumulators if
// (wallet_address, signature) already exists.
func (s *Store) InsertAccrual(_ context.Context, row *domain.LedgerTransaction) error {
	if row == nil || row.WalletAddress == "" || row.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.wallets[row.WalletAddress]
	if !exists {
		return storage.ErrNotFound
	}

	key := ledgerKey(row.WalletAddress, row.Signature)
	if _, exists := s.ledger[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextLedgerID++
	row.ID = s.nextLedgerID
	row.CreatedAt = nowMillis()

	copy := *row
	s.ledger[key] = &copy

	w.CurrentAccumulatedUsd += row.SpareChangeUsd
	w.CurrentAccumulatedNative += row.SpareChangeNative
	w.LifetimeAccumulatedUsd += row.SpareChangeUsd
	w.LifetimeAccumulatedNative += row.SpareChangeNative
	w.UpdatedAt = row.CreatedAt

	return nil
}

// GetUnprocessed retrieves all rows for a wallet with is_processed = false,
// ordered by timestamp ASC.
func (s *Store) GetUnprocessed(_ context.Context, address string) ([]*domain.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerTransaction
	for _, row := range s.ledger {
		if row.WalletAddress == address && !row.IsProcessed {
			copy := *row
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetByWallet retrieves up to limit rows for a wallet, newest first.
func (s *Store) GetByWallet(_ context.Context, address string, limit int) ([]*domain.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerTransaction
	for _, row := range s.ledger {
		if row.WalletAddress == address {
			copy := *row
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
