// Package main runs a single sync for one wallet and prints the result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"solana-roundup/internal/batcher"
	"solana-roundup/internal/pricing"
	"solana-roundup/internal/solana"
	"solana-roundup/internal/storage"
	"solana-roundup/internal/storage/migrations"
	pgstore "solana-roundup/internal/storage/postgres"
	"solana-roundup/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	address := flag.String("address", "", "Wallet address to sync")
	register := flag.Bool("register", false, "Register the wallet before syncing")
	lookbackDays := flag.Int("lookback-days", tracker.DefaultLookbackDays, "Transaction history window in days")
	fetchLimit := flag.Int("fetch-limit", tracker.DefaultFetchLimit, "Maximum signatures fetched")
	threshold := flag.Float64("payout-threshold", tracker.DefaultPayoutThresholdUsd, "USD payout threshold")
	coingeckoKey := flag.String("coingecko-api-key", os.Getenv("COINGECKO_API_KEY"), "CoinGecko API key (optional)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall run timeout")

	flag.Parse()

	logger := logrus.New()

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if *address == "" {
		logger.Fatal("--address is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Run migrations: %v", err)
	}

	wallets := pgstore.NewWalletStore(pool)
	ledger := pgstore.NewLedgerStore(pool)
	batches := pgstore.NewBatchStore(pool)

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	source := tracker.NewRPCSource(rpc, logger)

	var cgOpts []pricing.CoinGeckoOption
	if *coingeckoKey != "" {
		cgOpts = append(cgOpts, pricing.WithAPIKey(*coingeckoKey))
	}
	feed := pricing.NewCachedFeed(pricing.NewCoinGeckoClient(cgOpts...), logger)

	trk := tracker.New(wallets, ledger, source, feed, batcher.New(batches, logger), tracker.Config{
		LookbackDays:       *lookbackDays,
		FetchLimit:         *fetchLimit,
		PayoutThresholdUsd: *threshold,
	}, logger)

	if *register {
		if _, err := trk.Register(ctx, *address); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatalf("Register wallet: %v", err)
		}
	}

	result, err := trk.Sync(ctx, *address)
	if err != nil {
		logger.Fatalf("Sync: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatalf("Encode result: %v", err)
	}
}
