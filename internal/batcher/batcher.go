// Package batcher creates payout batches from accrued spare change and
// drives batch status transitions.
package batcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/observability"
	"solana-roundup/internal/storage"
)

// Batcher groups unprocessed ledger rows into payout batches.
type Batcher struct {
	batches storage.BatchStore
	logger  *logrus.Logger
}

// New creates a Batcher.
func New(batches storage.BatchStore, logger *logrus.Logger) *Batcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Batcher{batches: batches, logger: logger}
}

// CreatePayout atomically turns every unprocessed ledger row of the wallet
// into a new pending batch. The accumulator is reset as part of the same
// storage transaction. Returns storage.ErrNoUnprocessedRows when the
// accumulator crossed the threshold but no rows exist; that drift indicates
// an upstream bug and must not be silently absorbed.
func (b *Batcher) CreatePayout(ctx context.Context, address string) (*domain.PayoutBatch, error) {
	batchID := uuid.NewString()

	batch, err := b.batches.CreateFromUnprocessed(ctx, address, batchID)
	if err != nil {
		if errors.Is(err, storage.ErrNoUnprocessedRows) {
			observability.DefaultMetrics.BatchDrift.Inc()
			b.logger.WithField("wallet", address).
				Error("threshold crossed with no unprocessed rows")
		}
		return nil, fmt.Errorf("create batch: %w", err)
	}

	observability.RecordBatchCreated(batch.TotalSpareChangeUsd)
	b.logger.WithFields(logrus.Fields{
		"wallet":    address,
		"batch_id":  batch.ID,
		"total_usd": batch.TotalSpareChangeUsd,
		"tx_count":  batch.TransactionCount,
	}).Info("payout batch created")

	return batch, nil
}

// MarkProcessing moves a pending batch to processing.
func (b *Batcher) MarkProcessing(ctx context.Context, batchID string) error {
	return b.batches.UpdateStatus(ctx, batchID, domain.BatchStatusPending, domain.BatchStatusProcessing)
}

// MarkCompleted moves a processing batch to completed.
func (b *Batcher) MarkCompleted(ctx context.Context, batchID string) error {
	return b.batches.UpdateStatus(ctx, batchID, domain.BatchStatusProcessing, domain.BatchStatusCompleted)
}

// MarkFailed moves a processing batch to failed.
func (b *Batcher) MarkFailed(ctx context.Context, batchID string) error {
	return b.batches.UpdateStatus(ctx, batchID, domain.BatchStatusProcessing, domain.BatchStatusFailed)
}
