package memory

import (
	"context"
	"sort"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
)

var _ storage.WalletStore = (*Store)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if the address exists.
func (s *Store) Insert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[w.Address]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *w
	if copy.CreatedAt == 0 {
		copy.CreatedAt = nowMillis()
	}
	if copy.UpdatedAt == 0 {
		copy.UpdatedAt = copy.CreatedAt
	}
	s.wallets[w.Address] = &copy
	return nil
}

// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
func (s *Store) GetByAddress(_ context.Context, address string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.wallets[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *w
	return &copy, nil
}

// List retrieves all wallets ordered by creation time.
func (s *Store) List(_ context.Context) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Wallet
	for _, w := range s.wallets {
		copy := *w
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// AdvanceLastSeen moves the wallet's last-seen signature pointer.
func (s *Store) AdvanceLastSeen(_ context.Context, address, signature string) error {
	if address == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, exists := s.wallets[address]
	if !exists {
		return storage.ErrNotFound
	}

	w.LastSeenSignature = signature
	w.UpdatedAt = nowMillis()
	return nil
}
