package clickhouse

import (
	"context"
	"fmt"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage"
)

// AccrualEventStore implements storage.AccrualEventStore using ClickHouse.
// MergeTree does not enforce uniqueness; duplicate accrual events are
// tolerated here because the analytics aggregates are advisory and the
// postgres ledger remains the source of truth.
type AccrualEventStore struct {
	conn *Conn
}

// NewAccrualEventStore creates a new AccrualEventStore.
func NewAccrualEventStore(conn *Conn) *AccrualEventStore {
	return &AccrualEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AccrualEventStore = (*AccrualEventStore)(nil)

// InsertBulk appends accrual events projected from ledger rows.
func (s *AccrualEventStore) InsertBulk(ctx context.Context, rows []*domain.LedgerTransaction) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO accrual_events (
			wallet_address, signature, timestamp,
			spare_change_usd, spare_change_native, price_used, degraded
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range rows {
		degraded := uint8(0)
		if row.PriceDegraded {
			degraded = 1
		}
		err = batch.Append(
			row.WalletAddress, row.Signature, row.Timestamp,
			row.SpareChangeUsd, row.SpareChangeNative, row.PriceUsed, degraded,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// DailyTotals aggregates a wallet's accruals per UTC day, oldest first.
func (s *AccrualEventStore) DailyTotals(ctx context.Context, address string) ([]*domain.AccrualDailyTotal, error) {
	query := `
		SELECT formatDateTime(toDate(timestamp / 1000), '%Y-%m-%d') AS day,
		       sum(spare_change_usd) AS total_usd,
		       sum(spare_change_native) AS total_native,
		       count() AS cnt
		FROM accrual_events
		WHERE wallet_address = ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.conn.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var result []*domain.AccrualDailyTotal
	for rows.Next() {
		var (
			t   domain.AccrualDailyTotal
			cnt uint64
		)
		if err := rows.Scan(&t.Day, &t.TotalUsd, &t.TotalNative, &cnt); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		t.Count = int(cnt)
		result = append(result, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}

	return result, nil
}
