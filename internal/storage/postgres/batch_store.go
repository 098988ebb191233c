package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
)

// BatchStore implements storage.BatchStore using PostgreSQL.
type BatchStore struct {
	pool *Pool
}

// NewBatchStore creates a new BatchStore.
func NewBatchStore(pool *Pool) *BatchStore {
	return &BatchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BatchStore = (*BatchStore)(nil)

// CreateFromUnprocessed atomically creates a pending batch from every
// unprocessed ledger row of the wallet. Batch insert, row marking and
// accumulator reset happen in one database transaction; a concurrent
// reader never observes a partial payout.
func (s *BatchStore) CreateFromUnprocessed(ctx context.Context, address, batchID string) (*domain.PayoutBatch, error) {
	if address == "" || batchID == "" {
		return nil, storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the member rows so concurrent batchers cannot claim them twice.
	rows, err := tx.Query(ctx, `
		SELECT id, spare_change_usd, spare_change_native
		FROM ledger_transactions
		WHERE wallet_address = $1 AND NOT is_processed
		ORDER BY id ASC
		FOR UPDATE
	`, address)
	if err != nil {
		return nil, fmt.Errorf("lock unprocessed ledger rows: %w", err)
	}

	var (
		ids         []int64
		totalUsd    float64
		totalNative float64
	)
	for rows.Next() {
		var (
			id          int64
			usd, native float64
		)
		if err := rows.Scan(&id, &usd, &native); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan unprocessed ledger row: %w", err)
		}
		ids = append(ids, id)
		totalUsd += usd
		totalNative += native
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unprocessed ledger rows: %w", err)
	}

	if len(ids) == 0 {
		return nil, storage.ErrNoUnprocessedRows
	}

	batch := &domain.PayoutBatch{
		ID:                     batchID,
		WalletAddress:          address,
		TotalSpareChangeUsd:    totalUsd,
		TotalSpareChangeNative: totalNative,
		TransactionCount:       len(ids),
		Status:                 domain.BatchStatusPending,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO payout_batches (
			id, wallet_address, total_spare_change_usd,
			total_spare_change_native, transaction_count, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`,
		batch.ID,
		batch.WalletAddress,
		batch.TotalSpareChangeUsd,
		batch.TotalSpareChangeNative,
		batch.TransactionCount,
		batch.Status,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert payout batch: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE ledger_transactions
		SET is_processed = TRUE, batch_id = $1
		WHERE id = ANY($2)
	`, batch.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("mark ledger rows processed: %w", err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return nil, fmt.Errorf("marked %d ledger rows, expected %d", tag.RowsAffected(), len(ids))
	}

	tag, err = tx.Exec(ctx, `
		UPDATE wallets
		SET current_accumulated_usd = 0,
		    current_accumulated_native = 0,
		    total_payouts = total_payouts + 1,
		    updated_at = `+nowMillis+`
		WHERE address = $1
	`, address)
	if err != nil {
		return nil, fmt.Errorf("reset wallet accumulator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return batch, nil
}

// GetByID retrieves a batch. Returns ErrNotFound if not exists.
func (s *BatchStore) GetByID(ctx context.Context, batchID string) (*domain.PayoutBatch, error) {
	row := s.pool.QueryRow(ctx, batchSelect+` WHERE id = $1`, batchID)

	b, err := scanBatch(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get batch by id: %w", err)
	}

	return b, nil
}

// ListByWallet retrieves all batches for a wallet, newest first.
func (s *BatchStore) ListByWallet(ctx context.Context, address string) ([]*domain.PayoutBatch, error) {
	rows, err := s.pool.Query(ctx, batchSelect+`
		WHERE wallet_address = $1
		ORDER BY created_at DESC, id DESC
	`, address)
	if err != nil {
		return nil, fmt.Errorf("get batches by wallet: %w", err)
	}
	defer rows.Close()

	var batches []*domain.PayoutBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}

	return batches, nil
}

// UpdateStatus transitions a batch between statuses using a compare-and-swap
// on the expected current status.
func (s *BatchStore) UpdateStatus(ctx context.Context, batchID, from, to string) error {
	if !domain.ValidBatchTransition(from, to) {
		return storage.ErrInvalidTransition
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE payout_batches
		SET status = $3, updated_at = `+nowMillis+`
		WHERE id = $1 AND status = $2
	`, batchID, from, to)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the batch does not exist or it left the expected status.
		if _, err := s.GetByID(ctx, batchID); err != nil {
			return err
		}
		return storage.ErrInvalidTransition
	}

	return nil
}

const batchSelect = `
	SELECT id, wallet_address, total_spare_change_usd,
	       total_spare_change_native, transaction_count, status,
	       created_at, updated_at
	FROM payout_batches
`

// scanBatch scans a single batch row.
func scanBatch(row pgx.Row) (*domain.PayoutBatch, error) {
	var b domain.PayoutBatch

	err := row.Scan(
		&b.ID,
		&b.WalletAddress,
		&b.TotalSpareChangeUsd,
		&b.TotalSpareChangeNative,
		&b.TransactionCount,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &b, nil
}
