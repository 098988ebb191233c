package memory

import (
	"context"
	"sort"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
)

var _ storage.BatchStore = (*Store)(nil)

// CreateFromUnprocessed atomically creates a pending batch from every
// unprocessed ledger row of the wallet under the store mutex.
func (s *Store) CreateFromUnprocessed(_ context.Context, address, batchID string) (*domain.PayoutBatch, error) {
	if address == "" || batchID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.wallets[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	if _, exists := s.batches[batchID]; exists {
		return nil, storage.ErrDuplicateKey
	}

	var (
		members     []*domain.LedgerTransaction
		totalUsd    float64
		totalNative float64
	)
	for _, row := range s.ledger {
		if row.WalletAddress == address && !row.IsProcessed {
			members = append(members, row)
			totalUsd += row.SpareChangeUsd
			totalNative += row.SpareChangeNative
		}
	}

	if len(members) == 0 {
		return nil, storage.ErrNoUnprocessedRows
	}

	now := nowMillis()
	batch := &domain.PayoutBatch{
		ID:                     batchID,
		WalletAddress:          address,
		TotalSpareChangeUsd:    totalUsd,
		TotalSpareChangeNative: totalNative,
		TransactionCount:       len(members),
		Status:                 domain.BatchStatusPending,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	s.batches[batchID] = batch

	id := batchID
	for _, row := range members {
		row.IsProcessed = true
		row.BatchID = &id
	}

	w.CurrentAccumulatedUsd = 0
	w.CurrentAccumulatedNative = 0
	w.TotalPayouts++
	w.UpdatedAt = now

	copy := *batch
	return &copy, nil
}

// GetByID retrieves a batch. Returns ErrNotFound if not exists.
func (s *Store) GetByID(_ context.Context, batchID string) (*domain.PayoutBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.batches[batchID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *b
	return &copy, nil
}

// ListByWallet retrieves all batches for a wallet, newest first.
func (s *Store) ListByWallet(_ context.Context, address string) ([]*domain.PayoutBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PayoutBatch
	for _, b := range s.batches {
		if b.WalletAddress == address {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// UpdateStatus transitions a batch between statuses.
func (s *Store) UpdateStatus(_ context.Context, batchID, from, to string) error {
	if !domain.ValidBatchTransition(from, to) {
		return storage.ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.batches[batchID]
	if !exists {
		return storage.ErrNotFound
	}
	if b.Status != from {
		return storage.ErrInvalidTransition
	}

	b.Status = to
	b.UpdatedAt = nowMillis()
	return nil
}
