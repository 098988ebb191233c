package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/storage/clickhouse"
	"solana-roundup/internal/storage/migrations"
)

// setupTestDB creates a ClickHouse container and applies the embedded
// migrations. Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*clickhouse.Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := clickhouse.NewConn(ctx, dsn)
	require.NoError(t, err)

	err = migrations.RunClickhouseMigrations(ctx, conn)
	require.NoError(t, err, "failed to run migrations")

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

func accrualRow(address, signature string, ts int64, usd float64) *domain.LedgerTransaction {
	return &domain.LedgerTransaction{
		WalletAddress:     address,
		Signature:         signature,
		Timestamp:         ts,
		SpareChangeUsd:    usd,
		SpareChangeNative: usd / 180.0,
		PriceUsed:         180.0,
	}
}

func TestAccrualEventStore_InsertBulkAndDailyTotals(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewAccrualEventStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	day1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	day1Later := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC).UnixMilli()
	day2 := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC).UnixMilli()

	err = store.InsertBulk(ctx, []*domain.LedgerTransaction{
		accrualRow("WalletA", "Sig1", day1, 0.40),
		accrualRow("WalletA", "Sig2", day1Later, 0.30),
		accrualRow("WalletA", "Sig3", day2, 0.70),
		accrualRow("WalletB", "Sig4", day1, 0.99),
	})
	require.NoError(t, err)

	totals, err := store.DailyTotals(ctx, "WalletA")
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, "2024-01-01", totals[0].Day)
	assert.InDelta(t, 0.70, totals[0].TotalUsd, 1e-9)
	assert.Equal(t, 2, totals[0].Count)

	assert.Equal(t, "2024-01-02", totals[1].Day)
	assert.InDelta(t, 0.70, totals[1].TotalUsd, 1e-9)
	assert.Equal(t, 1, totals[1].Count)
}

func TestAccrualEventStore_DailyTotalsEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewAccrualEventStore(conn)

	totals, err := store.DailyTotals(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, totals)
}
