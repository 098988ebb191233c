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

func TestWalletStore_InsertAndGetByAddress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	w := &domain.Wallet{
		Address:           "WalletAddress123",
		LastSeenSignature: "Sig123",
	}

	err := store.Insert(ctx, w)
	require.NoError(t, err)

	retrieved, err := store.GetByAddress(ctx, "WalletAddress123")
	require.NoError(t, err)

	assert.Equal(t, w.Address, retrieved.Address)
	assert.Equal(t, w.LastSeenSignature, retrieved.LastSeenSignature)
	assert.Zero(t, retrieved.CurrentAccumulatedUsd)
	assert.Zero(t, retrieved.LifetimeAccumulatedUsd)
	assert.Zero(t, retrieved.TotalPayouts)
	assert.NotZero(t, retrieved.CreatedAt)
	assert.NotZero(t, retrieved.UpdatedAt)
}

func TestWalletStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	w := &domain.Wallet{Address: "WalletDup"}

	err := store.Insert(ctx, w)
	require.NoError(t, err)

	err = store.Insert(ctx, w)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestWalletStore_GetByAddressNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)

	_, err := store.GetByAddress(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWalletStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	for _, addr := range []string{"WalletA", "WalletB", "WalletC"} {
		err := store.Insert(ctx, &domain.Wallet{Address: addr})
		require.NoError(t, err)
	}

	wallets, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 3)
}

func TestWalletStore_AdvanceLastSeen(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, &domain.Wallet{Address: "WalletA"})
	require.NoError(t, err)

	err = store.AdvanceLastSeen(ctx, "WalletA", "NewestSig")
	require.NoError(t, err)

	retrieved, err := store.GetByAddress(ctx, "WalletA")
	require.NoError(t, err)
	assert.Equal(t, "NewestSig", retrieved.LastSeenSignature)
}

func TestWalletStore_AdvanceLastSeenNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)

	err := store.AdvanceLastSeen(context.Background(), "nonexistent", "Sig")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
