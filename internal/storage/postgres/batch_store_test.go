package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
	"solana-roundup/internal/storage/postgres"
)

func TestBatchStore_CreateFromUnprocessed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestWallet(t, pool, "WalletA")

	ledger := postgres.NewLedgerStore(pool)
	ctx := context.Background()

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig1", 1000, 0.40)))
	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig2", 2000, 0.70)))

	store := postgres.NewBatchStore(pool)

	batch, err := store.CreateFromUnprocessed(ctx, "WalletA", "batch-001")
	require.NoError(t, err)

	assert.Equal(t, "batch-001", batch.ID)
	assert.Equal(t, "WalletA", batch.WalletAddress)
	assert.InDelta(t, 1.10, batch.TotalSpareChangeUsd, 1e-9)
	assert.Equal(t, 2, batch.TransactionCount)
	assert.Equal(t, domain.BatchStatusPending, batch.Status)
	assert.NotZero(t, batch.CreatedAt)

	// Member rows are marked processed and linked
	rows, err := ledger.GetByWallet(ctx, "WalletA", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.IsProcessed)
		require.NotNil(t, row.BatchID)
		assert.Equal(t, "batch-001", *row.BatchID)
	}

	unprocessed, err := ledger.GetUnprocessed(ctx, "WalletA")
	require.NoError(t, err)
	assert.Empty(t, unprocessed)

	// Accumulator is reset and the payout counted
	wallets := postgres.NewWalletStore(pool)
	w, err := wallets.GetByAddress(ctx, "WalletA")
	require.NoError(t, err)
	assert.Zero(t, w.CurrentAccumulatedUsd)
	assert.Zero(t, w.CurrentAccumulatedNative)
	assert.InDelta(t, 1.10, w.LifetimeAccumulatedUsd, 1e-9)
	assert.Equal(t, 1, w.TotalPayouts)
}

func TestBatchStore_CreateFromUnprocessedNoRows(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestWallet(t, pool, "WalletA")

	store := postgres.NewBatchStore(pool)

	_, err := store.CreateFromUnprocessed(context.Background(), "WalletA", "batch-001")
	assert.ErrorIs(t, err, storage.ErrNoUnprocessedRows)
}

func TestBatchStore_CreateFromUnprocessedDuplicateID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestWallet(t, pool, "WalletA")

	ledger := postgres.NewLedgerStore(pool)
	ctx := context.Background()

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig1", 1000, 0.40)))

	store := postgres.NewBatchStore(pool)
	_, err := store.CreateFromUnprocessed(ctx, "WalletA", "batch-001")
	require.NoError(t, err)

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig2", 2000, 0.70)))

	_, err = store.CreateFromUnprocessed(ctx, "WalletA", "batch-001")
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The failed attempt must not have claimed the row
	unprocessed, err := ledger.GetUnprocessed(ctx, "WalletA")
	require.NoError(t, err)
	assert.Len(t, unprocessed, 1)
}

func TestBatchStore_SecondBatchExcludesProcessedRows(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestWallet(t, pool, "WalletA")

	ledger := postgres.NewLedgerStore(pool)
	store := postgres.NewBatchStore(pool)
	ctx := context.Background()

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig1", 1000, 0.40)))
	_, err := store.CreateFromUnprocessed(ctx, "WalletA", "batch-001")
	require.NoError(t, err)

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig2", 2000, 0.70)))
	second, err := store.CreateFromUnprocessed(ctx, "WalletA", "batch-002")
	require.NoError(t, err)

	assert.Equal(t, 1, second.TransactionCount)
	assert.InDelta(t, 0.70, second.TotalSpareChangeUsd, 1e-9)
}

func TestBatchStore_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestWallet(t, pool, "WalletA")

	ledger := postgres.NewLedgerStore(pool)
	store := postgres.NewBatchStore(pool)
	ctx := context.Background()

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig1", 1000, 0.40)))
	created, err := store.CreateFromUnprocessed(ctx, "WalletA", "batch-001")
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "batch-001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, retrieved.ID)
	assert.Equal(t, created.WalletAddress, retrieved.WalletAddress)
	assert.InDelta(t, created.TotalSpareChangeUsd, retrieved.TotalSpareChangeUsd, 1e-9)
	assert.Equal(t, created.Status, retrieved.Status)

	_, err = store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBatchStore_ListByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestWallet(t, pool, "WalletA")

	ledger := postgres.NewLedgerStore(pool)
	store := postgres.NewBatchStore(pool)
	ctx := context.Background()

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig1", 1000, 0.40)))
	_, err := store.CreateFromUnprocessed(ctx, "WalletA", "batch-001")
	require.NoError(t, err)

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig2", 2000, 0.70)))
	_, err = store.CreateFromUnprocessed(ctx, "WalletA", "batch-002")
	require.NoError(t, err)

	batches, err := store.ListByWallet(ctx, "WalletA")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "batch-002", batches[0].ID)
	assert.Equal(t, "batch-001", batches[1].ID)
}

func TestBatchStore_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	insertTestWallet(t, pool, "WalletA")

	ledger := postgres.NewLedgerStore(pool)
	store := postgres.NewBatchStore(pool)
	ctx := context.Background()

	require.NoError(t, ledger.InsertAccrual(ctx, testLedgerRow("WalletA", "Sig1", 1000, 0.40)))
	_, err := store.CreateFromUnprocessed(ctx, "WalletA", "batch-001")
	require.NoError(t, err)

	// Skipping processing is not allowed
	err = store.UpdateStatus(ctx, "batch-001", domain.BatchStatusPending, domain.BatchStatusCompleted)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)

	err = store.UpdateStatus(ctx, "batch-001", domain.BatchStatusPending, domain.BatchStatusProcessing)
	require.NoError(t, err)

	// Stale expected status fails the compare-and-swap
	err = store.UpdateStatus(ctx, "batch-001", domain.BatchStatusPending, domain.BatchStatusProcessing)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)

	err = store.UpdateStatus(ctx, "batch-001", domain.BatchStatusProcessing, domain.BatchStatusCompleted)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "batch-001")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCompleted, retrieved.Status)

	// Completed is terminal
	err = store.UpdateStatus(ctx, "batch-001", domain.BatchStatusCompleted, domain.BatchStatusProcessing)
	assert.ErrorIs(t, err, storage.ErrInvalidTransition)
}
