// Package main runs the spare-change service: the HTTP API, a periodic
// all-wallet sync scheduler, and an optional live wallet-activity watcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"solana-roundup/internal/batcher"
	"solana-roundup/internal/pricing"
	"solana-roundup/internal/proposal"
	"solana-roundup/internal/solana"
	"solana-roundup/internal/storage"
	chstore "solana-roundup/internal/storage/clickhouse"
	"solana-roundup/internal/storage/memory"
	"solana-roundup/internal/storage/migrations"
	pgstore "solana-roundup/internal/storage/postgres"
	"solana-roundup/internal/tracker"
)

// Server wires all components of the service together.
type Server struct {
	tracker     *tracker.Tracker
	batcher     *batcher.Batcher
	engine      *proposal.Engine
	source      tracker.TransactionSource
	rpc         solana.RPCClient
	wallets     storage.WalletStore
	ledger      storage.LedgerStore
	batches     storage.BatchStore
	events      storage.AccrualEventStore // nil without an analytics sink
	proposalCfg proposal.Config
	syncCfg     tracker.Config
	logger      *logrus.Logger

	mu       sync.Mutex
	watcher  *tracker.Watcher
	started  time.Time
	lastSync time.Time
	syncRuns int
	syncing  bool
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, enables the activity watcher)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables the analytics sink)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	syncInterval := flag.Duration("sync-interval", 10*time.Minute, "Periodic all-wallet sync interval")
	lookbackDays := flag.Int("lookback-days", tracker.DefaultLookbackDays, "Transaction history window in days")
	fetchLimit := flag.Int("fetch-limit", tracker.DefaultFetchLimit, "Maximum signatures fetched per sync")
	threshold := flag.Float64("payout-threshold", tracker.DefaultPayoutThresholdUsd, "USD accumulation threshold triggering a payout batch")
	minProposal := flag.Float64("min-proposal", 0, "Minimum native spare-change amount, smaller round-ups are dropped")
	maxProposal := flag.Float64("max-proposal", 0, "Maximum native spare-change amount, 0 = no cap")
	percentageRate := flag.Float64("percentage-rate", 1.0, "Percentage-law rate for proposal previews")
	coingeckoKey := flag.String("coingecko-api-key", os.Getenv("COINGECKO_API_KEY"), "CoinGecko API key (optional)")

	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	wallets, ledger, batches, events, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	source := tracker.NewRPCSource(rpc, logger)

	var cgOpts []pricing.CoinGeckoOption
	if *coingeckoKey != "" {
		cgOpts = append(cgOpts, pricing.WithAPIKey(*coingeckoKey))
	}
	feed := pricing.NewCachedFeed(pricing.NewCoinGeckoClient(cgOpts...), logger)

	syncCfg := tracker.Config{
		LookbackDays:       *lookbackDays,
		FetchLimit:         *fetchLimit,
		PayoutThresholdUsd: *threshold,
		MinProposalAmount:  *minProposal,
	}
	proposalCfg := proposal.Config{
		RoundUpEnabled:    true,
		PercentageEnabled: *percentageRate > 0,
		PercentageRate:    *percentageRate,
		MinProposalAmount: *minProposal,
	}
	if *maxProposal > 0 {
		syncCfg.MaxProposalAmount = maxProposal
		proposalCfg.MaxProposalAmount = maxProposal
	}

	b := batcher.New(batches, logger)
	trk := tracker.New(wallets, ledger, source, feed, b, syncCfg, logger)
	if events != nil {
		trk.WithRecorder(events)
	}

	server := &Server{
		tracker:     trk,
		batcher:     b,
		engine:      proposal.NewEngine(feed),
		source:      source,
		rpc:         rpc,
		wallets:     wallets,
		ledger:      ledger,
		batches:     batches,
		events:      events,
		proposalCfg: proposalCfg,
		syncCfg:     syncCfg,
		logger:      logger,
		started:     time.Now(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Infof("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*httpAddr)

	if *wsEndpoint != "" {
		go func() {
			if err := server.runWatcher(ctx, *wsEndpoint); err != nil && err != context.Canceled {
				logger.WithError(err).Error("watcher stopped")
			}
		}()
	}

	err = server.runSyncScheduler(ctx, *syncInterval)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Info("Shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// createStores builds the wallet, ledger and batch stores plus the optional
// analytics sink.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (
	storage.WalletStore, storage.LedgerStore, storage.BatchStore, storage.AccrualEventStore, func(), error,
) {
	if useMemory {
		store := memory.NewStore()
		return store, store, store, nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	var events storage.AccrualEventStore
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			conn.Close()
			pool.Close()
			return nil, nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		events = chstore.NewAccrualEventStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewWalletStore(pool), pgstore.NewLedgerStore(pool), pgstore.NewBatchStore(pool), events, cleanup, nil
}

// runSyncScheduler syncs every registered wallet on a fixed interval.
func (s *Server) runSyncScheduler(ctx context.Context, interval time.Duration) error {
	s.logger.Infof("Starting sync scheduler (interval: %v)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.syncAll(ctx)
		}
	}
}

// syncAll runs one sync pass over all wallets. Overlapping passes are
// skipped.
func (s *Server) syncAll(ctx context.Context) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		s.logger.Info("Sync pass already running, skipping")
		return
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.lastSync = time.Now()
		s.syncRuns++
		s.mu.Unlock()
	}()

	wallets, err := s.wallets.List(ctx)
	if err != nil {
		s.logger.WithError(err).Error("list wallets for sync pass")
		return
	}

	for _, w := range wallets {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.tracker.Sync(ctx, w.Address); err != nil {
			s.logger.WithError(err).WithField("wallet", w.Address).Warn("scheduled sync failed")
		}
	}
}

// runWatcher connects the WebSocket client and watches wallet activity.
func (s *Server) runWatcher(ctx context.Context, wsEndpoint string) error {
	ws, err := solana.NewWSClient(ctx, wsEndpoint, s.logger, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	watcher := tracker.NewWatcher(ws, s.tracker, s.wallets, s.logger)
	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()
	return watcher.Run(ctx)
}

// startHTTPServer serves the API plus health, status and metrics endpoints.
func (s *Server) startHTTPServer(addr string) {
	s.logger.Infof("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, s.routes()); err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("HTTP server stopped")
	}
}
