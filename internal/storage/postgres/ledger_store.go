package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// InsertAccrual adds a ledger row and increments the wallet's accumulators
// in a single transaction. Returns ErrDuplicateKey without touching the
// accumulators if (wallet_address, signature) already exists.
func (s *LedgerStore) InsertAccrual(ctx context.Context, row *domain.LedgerTransaction) error {
	if row == nil || row.WalletAddress == "" || row.Signature == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO ledger_transactions (
			wallet_address, signature, timestamp, slot,
			original_amount_native, original_amount_usd,
			spare_change_usd, spare_change_native,
			price_used, price_degraded
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, insert,
		row.WalletAddress,
		row.Signature,
		row.Timestamp,
		row.Slot,
		row.OriginalAmountNative,
		row.OriginalAmountUsd,
		row.SpareChangeUsd,
		row.SpareChangeNative,
		row.PriceUsed,
		row.PriceDegraded,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger row: %w", err)
	}

	accrue := `
		UPDATE wallets
		SET current_accumulated_usd = current_accumulated_usd + $2,
		    current_accumulated_native = current_accumulated_native + $3,
		    lifetime_accumulated_usd = lifetime_accumulated_usd + $2,
		    lifetime_accumulated_native = lifetime_accumulated_native + $3,
		    updated_at = ` + nowMillis + `
		WHERE address = $1
	`

	tag, err := tx.Exec(ctx, accrue, row.WalletAddress, row.SpareChangeUsd, row.SpareChangeNative)
	if err != nil {
		return fmt.Errorf("update wallet accumulator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetUnprocessed retrieves all rows for a wallet with is_processed = false,
// ordered by timestamp ASC.
func (s *LedgerStore) GetUnprocessed(ctx context.Context, address string) ([]*domain.LedgerTransaction, error) {
	query := ledgerSelect + `
		WHERE wallet_address = $1 AND NOT is_processed
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("get unprocessed ledger rows: %w", err)
	}
	defer rows.Close()

	return scanLedgerRows(rows)
}

// GetByWallet retrieves up to limit rows for a wallet, newest first.
func (s *LedgerStore) GetByWallet(ctx context.Context, address string, limit int) ([]*domain.LedgerTransaction, error) {
	query := ledgerSelect + `
		WHERE wallet_address = $1
		ORDER BY timestamp DESC, id DESC
	`

	args := []interface{}{address}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get ledger rows by wallet: %w", err)
	}
	defer rows.Close()

	return scanLedgerRows(rows)
}

const ledgerSelect = `
	SELECT id, wallet_address, signature, timestamp, slot,
	       original_amount_native, original_amount_usd,
	       spare_change_usd, spare_change_native,
	       price_used, price_degraded, is_processed, batch_id, created_at
	FROM ledger_transactions
`

// scanLedgerRows scans multiple rows into a slice of LedgerTransaction.
func scanLedgerRows(rows pgx.Rows) ([]*domain.LedgerTransaction, error) {
	var result []*domain.LedgerTransaction

	for rows.Next() {
		var lt domain.LedgerTransaction

		err := rows.Scan(
			&lt.ID,
			&lt.WalletAddress,
			&lt.Signature,
			&lt.Timestamp,
			&lt.Slot,
			&lt.OriginalAmountNative,
			&lt.OriginalAmountUsd,
			&lt.SpareChangeUsd,
			&lt.SpareChangeNative,
			&lt.PriceUsed,
			&lt.PriceDegraded,
			&lt.IsProcessed,
			&lt.BatchID,
			&lt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}

		result = append(result, &lt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}

	return result, nil
}
