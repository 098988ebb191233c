// Package tracker orchestrates incremental wallet syncs: it discovers new
// outgoing transactions, converts them to spare change, persists ledger
// rows, and triggers payout batching when the accumulator crosses the
// threshold.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-roundup/internal/batcher"
	"solana-roundup/internal/domain"
	"solana-roundup/internal/observability"
	"solana-roundup/internal/pricing"
	"solana-roundup/internal/proposal"
	"solana-roundup/internal/solana"
	"solana-roundup/internal/storage"
)

// Default sync parameters.
const (
	DefaultLookbackDays       = 30
	DefaultFetchLimit         = 50
	DefaultPayoutThresholdUsd = 1.00
)

// Config controls sync behavior.
type Config struct {
	// LookbackDays bounds how far back the fetched window reaches.
	LookbackDays int
	// FetchLimit bounds how many signatures one sync fetches.
	FetchLimit int
	// PayoutThresholdUsd triggers batch creation when the wallet's
	// current accumulator reaches it.
	PayoutThresholdUsd float64
	// MinProposalAmount drops round-ups below this native amount.
	MinProposalAmount float64
	// MaxProposalAmount clamps round-ups to this native amount, nil = no cap.
	MaxProposalAmount *float64
}

// DefaultConfig returns the default sync configuration.
func DefaultConfig() Config {
	return Config{
		LookbackDays:       DefaultLookbackDays,
		FetchLimit:         DefaultFetchLimit,
		PayoutThresholdUsd: DefaultPayoutThresholdUsd,
	}
}

// SyncResult summarizes one completed sync.
type SyncResult struct {
	NewTransactionCount int                         // ledger rows created by this sync
	Transactions        []*domain.LedgerTransaction // the rows themselves, oldest first
	PayoutTriggered     bool                        // whether a batch was created
	Batch               *domain.PayoutBatch         // the created batch, nil otherwise
}

// Tracker syncs wallets against the chain. Syncs for the same wallet are
// serialized; different wallets sync concurrently.
type Tracker struct {
	wallets storage.WalletStore
	ledger  storage.LedgerStore
	source  TransactionSource
	feed    pricing.Feed
	batcher *batcher.Batcher
	// recorder is an optional analytics sink; nil disables it.
	recorder storage.AccrualEventStore
	cfg      Config
	logger   *logrus.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a Tracker.
func New(
	wallets storage.WalletStore,
	ledger storage.LedgerStore,
	source TransactionSource,
	feed pricing.Feed,
	b *batcher.Batcher,
	cfg Config,
	logger *logrus.Logger,
) *Tracker {
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.FetchLimit == 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.PayoutThresholdUsd == 0 {
		cfg.PayoutThresholdUsd = DefaultPayoutThresholdUsd
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{
		wallets: wallets,
		ledger:  ledger,
		source:  source,
		feed:    feed,
		batcher: b,
		cfg:     cfg,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// WithRecorder attaches an analytics sink receiving accrued rows.
func (t *Tracker) WithRecorder(r storage.AccrualEventStore) *Tracker {
	t.recorder = r
	return t
}

// Register validates and creates a wallet account.
func (t *Tracker) Register(ctx context.Context, address string) (*domain.Wallet, error) {
	if err := solana.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	w := &domain.Wallet{Address: address}
	if err := t.wallets.Insert(ctx, w); err != nil {
		return nil, err
	}
	t.logger.WithField("wallet", address).Info("wallet registered")
	return w, nil
}

// Sync runs one incremental sync for the wallet. At most one batch is
// created per call.
func (t *Tracker) Sync(ctx context.Context, address string) (*SyncResult, error) {
	if err := solana.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	start := time.Now()
	res, err := t.syncLocked(ctx, address)
	if err != nil {
		observability.RecordSync("error", time.Since(start).Seconds())
		return nil, err
	}
	observability.RecordSync("success", time.Since(start).Seconds())
	return res, nil
}

func (t *Tracker) syncLocked(ctx context.Context, address string) (*SyncResult, error) {
	// Concurrent syncs for one wallet race on the accumulator and the
	// threshold check, so everything below runs under the wallet's lock.
	lock := t.walletLock(address)
	lock.Lock()
	defer lock.Unlock()

	wallet, err := t.wallets.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	window, err := t.source.FetchRecent(ctx, address, t.cfg.LookbackDays, t.cfg.FetchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetchFailed, err)
	}

	fresh := newerThan(window, wallet.LastSeenSignature)

	result := &SyncResult{Transactions: make([]*domain.LedgerTransaction, 0)}

	// Process oldest first so ledger ordering follows chain ordering.
	for i := len(fresh) - 1; i >= 0; i-- {
		tx := fresh[i]
		if !proposal.Eligible(tx) {
			continue
		}
		row, ok := t.accrue(ctx, address, tx)
		if !ok {
			continue
		}
		result.Transactions = append(result.Transactions, row)
	}
	result.NewTransactionCount = len(result.Transactions)

	// The pointer moves exactly once per sync, to the newest fetched
	// transaction, even when individual rows were skipped.
	if len(fresh) > 0 {
		if err := t.wallets.AdvanceLastSeen(ctx, address, fresh[0].Signature); err != nil {
			return nil, fmt.Errorf("advance last seen: %w", err)
		}
	}

	if t.recorder != nil && len(result.Transactions) > 0 {
		if err := t.recorder.InsertBulk(ctx, result.Transactions); err != nil {
			t.logger.WithError(err).WithField("wallet", address).
				Warn("analytics sink write failed")
		}
	}

	wallet, err = t.wallets.GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("reload wallet: %w", err)
	}

	if wallet.CurrentAccumulatedUsd >= t.cfg.PayoutThresholdUsd {
		batch, err := t.batcher.CreatePayout(ctx, address)
		if err != nil {
			return nil, err
		}
		result.PayoutTriggered = true
		result.Batch = batch
	}

	t.logger.WithFields(logrus.Fields{
		"wallet":    address,
		"new_rows":  result.NewTransactionCount,
		"triggered": result.PayoutTriggered,
	}).Info("sync completed")

	return result, nil
}

// accrue converts one transaction to a ledger row and persists it. Returns
// false when the row was dropped, was a duplicate, or failed to persist.
func (t *Tracker) accrue(ctx context.Context, address string, tx domain.WalletTransaction) (*domain.LedgerTransaction, bool) {
	amount := *tx.Amount

	spare, ok := proposal.Bound(proposal.RoundUpNative(amount), proposal.Config{
		MinProposalAmount: t.cfg.MinProposalAmount,
		MaxProposalAmount: t.cfg.MaxProposalAmount,
	})
	if !ok {
		return nil, false
	}

	quote := t.feed.PriceAt(ctx, tx.TokenMint, time.Unix(tx.BlockTime, 0))

	row := &domain.LedgerTransaction{
		WalletAddress:        address,
		Signature:            tx.Signature,
		Timestamp:            tx.BlockTime * 1000,
		Slot:                 tx.Slot,
		OriginalAmountNative: amount,
		OriginalAmountUsd:    amount * quote.PriceUsd,
		SpareChangeNative:    spare,
		SpareChangeUsd:       spare * quote.PriceUsd,
		PriceUsed:            quote.PriceUsd,
		PriceDegraded:        quote.Degraded,
	}

	if err := t.ledger.InsertAccrual(ctx, row); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Already accrued: the window overlapped prior syncs.
			observability.DefaultMetrics.SkippedDuplicates.Inc()
			return nil, false
		}
		observability.DefaultMetrics.RowPersistFailures.Inc()
		t.logger.WithError(err).WithFields(logrus.Fields{
			"wallet":    address,
			"signature": tx.Signature,
		}).Error("ledger row persist failed, skipping")
		return nil, false
	}

	observability.RecordAccrual(row.SpareChangeUsd)
	return row, true
}

// newerThan returns the prefix of the newest-first window strictly newer
// than the last seen signature. When the pointer is absent from the window
// the whole window is treated as new; the unique (wallet, signature)
// constraint dedupes any reprocessed rows.
func newerThan(window []domain.WalletTransaction, lastSeen string) []domain.WalletTransaction {
	if lastSeen == "" {
		return window
	}
	for i, tx := range window {
		if tx.Signature == lastSeen {
			return window[:i]
		}
	}
	return window
}

func (t *Tracker) walletLock(address string) *sync.Mutex {
	t.locksMu.Lock()
	defer t.locksMu.Unlock()
	lock, ok := t.locks[address]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[address] = lock
	}
	return lock
}
