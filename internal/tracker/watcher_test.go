package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/solana"
)

// fakeWS records subscriptions and lets tests push notifications.
type fakeWS struct {
	mu       sync.Mutex
	channels map[string]chan solana.LogNotification
}

func newFakeWS() *fakeWS {
	return &fakeWS{channels: make(map[string]chan solana.LogNotification)}
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan solana.LogNotification, 8)
	f.channels[filter.Mentions[0]] = ch
	return ch, nil
}

func (f *fakeWS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		close(ch)
	}
	f.channels = make(map[string]chan solana.LogNotification)
	return nil
}

func (f *fakeWS) notify(address string) {
	f.mu.Lock()
	ch := f.channels[address]
	f.mu.Unlock()
	ch <- solana.LogNotification{Signature: "activity"}
}

func (f *fakeWS) subscribed(address string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[address]
	return ok
}

func TestWatcher_RunSubscribesRegisteredWallets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trk, store := newTestTracker(t, &fakeSource{}, 1)
	_, err := trk.Register(ctx, testAddress)
	require.NoError(t, err)

	ws := newFakeWS()
	w := NewWatcher(ws, trk, store, quietLogger())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ws.subscribed(testAddress)
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_DebouncedNotificationTriggersSync(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{window: []domain.WalletTransaction{
		sentTx("sig1", 0.6, 1700000000),
	}}
	trk, store := newTestTracker(t, source, 1)
	_, err := trk.Register(ctx, testAddress)
	require.NoError(t, err)

	ws := newFakeWS()
	w := NewWatcher(ws, trk, store, quietLogger())
	w.debounce = 10 * time.Millisecond

	require.NoError(t, w.Watch(ctx, testAddress))

	// A burst of notifications collapses into one sync.
	ws.notify(testAddress)
	ws.notify(testAddress)
	ws.notify(testAddress)

	require.Eventually(t, func() bool {
		wallet, err := store.GetByAddress(ctx, testAddress)
		return err == nil && wallet.LastSeenSignature == "sig1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_WatchIsIdempotent(t *testing.T) {
	ctx := context.Background()

	trk, store := newTestTracker(t, &fakeSource{}, 1)
	_, err := trk.Register(ctx, testAddress)
	require.NoError(t, err)

	ws := newFakeWS()
	w := NewWatcher(ws, trk, store, quietLogger())

	require.NoError(t, w.Watch(ctx, testAddress))
	require.NoError(t, w.Watch(ctx, testAddress))

	ws.mu.Lock()
	n := len(ws.channels)
	ws.mu.Unlock()
	require.Equal(t, 1, n)
}
