package batcher

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
	"solana-roundup/internal/storage/memory"
)

const testAddress = "wallet1"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Insert(ctx, &domain.Wallet{Address: testAddress}))
	require.NoError(t, store.InsertAccrual(ctx, &domain.LedgerTransaction{
		WalletAddress:     testAddress,
		Signature:         "sig1",
		Timestamp:         1700000000000,
		SpareChangeUsd:    0.40,
		SpareChangeNative: 0.40,
	}))
	require.NoError(t, store.InsertAccrual(ctx, &domain.LedgerTransaction{
		WalletAddress:     testAddress,
		Signature:         "sig2",
		Timestamp:         1700000100000,
		SpareChangeUsd:    0.70,
		SpareChangeNative: 0.70,
	}))
	return store
}

func TestCreatePayout(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	b := New(store, quietLogger())

	batch, err := b.CreatePayout(ctx, testAddress)
	require.NoError(t, err)
	require.NotEmpty(t, batch.ID)
	require.Equal(t, domain.BatchStatusPending, batch.Status)
	require.InDelta(t, 1.10, batch.TotalSpareChangeUsd, 1e-9)
	require.Equal(t, 2, batch.TransactionCount)

	wallet, err := store.GetByAddress(ctx, testAddress)
	require.NoError(t, err)
	require.Zero(t, wallet.CurrentAccumulatedUsd)
	require.Equal(t, 1, wallet.TotalPayouts)

	unprocessed, err := store.GetUnprocessed(ctx, testAddress)
	require.NoError(t, err)
	require.Empty(t, unprocessed)
}

func TestCreatePayout_NoUnprocessedRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Insert(ctx, &domain.Wallet{Address: testAddress}))

	b := New(store, quietLogger())

	_, err := b.CreatePayout(ctx, testAddress)
	require.ErrorIs(t, err, storage.ErrNoUnprocessedRows)
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	b := New(store, quietLogger())

	batch, err := b.CreatePayout(ctx, testAddress)
	require.NoError(t, err)

	// completed straight from pending is not allowed
	require.ErrorIs(t, b.MarkCompleted(ctx, batch.ID), storage.ErrInvalidTransition)

	require.NoError(t, b.MarkProcessing(ctx, batch.ID))
	require.NoError(t, b.MarkCompleted(ctx, batch.ID))

	// completed is terminal
	require.ErrorIs(t, b.MarkFailed(ctx, batch.ID), storage.ErrInvalidTransition)

	got, err := store.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusCompleted, got.Status)
}

func TestMarkProcessing_UnknownBatch(t *testing.T) {
	store := memory.NewStore()
	b := New(store, quietLogger())

	err := b.MarkProcessing(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
