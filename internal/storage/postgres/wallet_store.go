package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if the address exists.
func (s *WalletStore) Insert(ctx context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallets (address, last_seen_signature)
		VALUES ($1, $2)
	`

	_, err := s.pool.Exec(ctx, query, w.Address, w.LastSeenSignature)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `
		SELECT address, current_accumulated_usd, current_accumulated_native,
		       lifetime_accumulated_usd, lifetime_accumulated_native,
		       total_payouts, last_seen_signature, created_at, updated_at
		FROM wallets
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)

	w, err := scanWallet(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by address: %w", err)
	}

	return w, nil
}

// List retrieves all wallets ordered by creation time.
func (s *WalletStore) List(ctx context.Context) ([]*domain.Wallet, error) {
	query := `
		SELECT address, current_accumulated_usd, current_accumulated_native,
		       lifetime_accumulated_usd, lifetime_accumulated_native,
		       total_payouts, last_seen_signature, created_at, updated_at
		FROM wallets
		ORDER BY created_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}

	return wallets, nil
}

// AdvanceLastSeen moves the wallet's last-seen signature pointer.
func (s *WalletStore) AdvanceLastSeen(ctx context.Context, address, signature string) error {
	if address == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE wallets
		SET last_seen_signature = $2, updated_at = ` + nowMillis + `
		WHERE address = $1
	`

	tag, err := s.pool.Exec(ctx, query, address, signature)
	if err != nil {
		return fmt.Errorf("advance last seen signature: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanWallet scans a single wallet row.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet

	err := row.Scan(
		&w.Address,
		&w.CurrentAccumulatedUsd,
		&w.CurrentAccumulatedNative,
		&w.LifetimeAccumulatedUsd,
		&w.LifetimeAccumulatedNative,
		&w.TotalPayouts,
		&w.LastSeenSignature,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &w, nil
}
