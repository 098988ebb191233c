package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-roundup/internal/observability"
	"solana-roundup/internal/solana"
	"solana-roundup/internal/storage"
)

// DefaultDebounce collapses bursts of activity notifications into one sync.
const DefaultDebounce = 2 * time.Second

// Watcher subscribes to on-chain log notifications mentioning registered
// wallets and triggers a sync when activity is observed. Notifications are
// debounced per wallet.
type Watcher struct {
	ws       solana.WSClient
	tracker  *Tracker
	wallets  storage.WalletStore
	debounce time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	watched map[string]struct{}
	pending map[string]*time.Timer
}

// NewWatcher creates a Watcher.
func NewWatcher(ws solana.WSClient, tracker *Tracker, wallets storage.WalletStore, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Watcher{
		ws:       ws,
		tracker:  tracker,
		wallets:  wallets,
		debounce: DefaultDebounce,
		logger:   logger,
		watched:  make(map[string]struct{}),
		pending:  make(map[string]*time.Timer),
	}
}

// Run subscribes to every registered wallet and blocks until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	list, err := w.wallets.List(ctx)
	if err != nil {
		return err
	}
	for _, wallet := range list {
		if err := w.Watch(ctx, wallet.Address); err != nil {
			w.logger.WithError(err).WithField("wallet", wallet.Address).
				Warn("wallet subscription failed")
		}
	}

	<-ctx.Done()
	return ctx.Err()
}

// Watch subscribes to log notifications mentioning the wallet. Watching an
// already-watched wallet is a no-op.
func (w *Watcher) Watch(ctx context.Context, address string) error {
	w.mu.Lock()
	if _, ok := w.watched[address]; ok {
		w.mu.Unlock()
		return nil
	}
	w.watched[address] = struct{}{}
	w.mu.Unlock()

	ch, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{address}})
	if err != nil {
		w.mu.Lock()
		delete(w.watched, address)
		w.mu.Unlock()
		return err
	}

	go w.consume(address, ch)
	w.logger.WithField("wallet", address).Info("watching wallet activity")
	return nil
}

// consume runs until the subscription channel is closed by the client.
func (w *Watcher) consume(address string, ch <-chan solana.LogNotification) {
	for range ch {
		w.trigger(address)
	}
}

// trigger schedules a debounced sync. A timer already pending for the
// wallet absorbs the new notification.
func (w *Watcher) trigger(address string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pending[address]; ok {
		return
	}

	w.pending[address] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, address)
		w.mu.Unlock()

		observability.DefaultMetrics.WSSyncTriggers.Inc()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := w.tracker.Sync(ctx, address); err != nil {
			w.logger.WithError(err).WithField("wallet", address).
				Warn("activity-triggered sync failed")
		}
	})
}
