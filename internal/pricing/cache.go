package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/observability"
)

const (
	// DefaultCacheTTL is how long a fetched price stays fresh.
	DefaultCacheTTL = time.Minute

	// DefaultRecencyWindow bounds how far in the past a cached price may be
	// reused for a historical timestamp before a fresh fetch is preferred.
	DefaultRecencyWindow = 5 * time.Minute
)

// cacheEntry holds one asset's last successful quote plus a per-key lock so
// concurrent lookups of the same asset produce a single upstream fetch.
type cacheEntry struct {
	mu    sync.Mutex
	quote *domain.PriceQuote
}

// CachedFeed wraps a price Client with a TTL cache and degrade-to-zero
// behavior. PriceAt never returns an error: when the upstream fetch fails,
// the returned quote carries PriceUsd 0 with Degraded set, and is not cached.
type CachedFeed struct {
	client Client
	ttl    time.Duration
	window time.Duration
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

var _ Feed = (*CachedFeed)(nil)

// CacheOption configures a CachedFeed.
type CacheOption func(*CachedFeed)

// WithTTL overrides the cache freshness window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(f *CachedFeed) {
		f.ttl = ttl
	}
}

// WithRecencyWindow overrides how old a quote may be relative to the
// requested timestamp.
func WithRecencyWindow(window time.Duration) CacheOption {
	return func(f *CachedFeed) {
		f.window = window
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) CacheOption {
	return func(f *CachedFeed) {
		f.now = now
	}
}

// NewCachedFeed creates a CachedFeed backed by the given client.
func NewCachedFeed(client Client, logger *logrus.Logger, opts ...CacheOption) *CachedFeed {
	if logger == nil {
		logger = logrus.New()
	}
	f := &CachedFeed{
		client:  client,
		ttl:     DefaultCacheTTL,
		window:  DefaultRecencyWindow,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PriceAt returns the USD price for assetKey to be used for a transaction
// observed at the given time. A cached quote is reused while it is both
// fresh (within the TTL) and recent enough for the requested timestamp.
func (f *CachedFeed) PriceAt(ctx context.Context, assetKey string, at time.Time) *domain.PriceQuote {
	entry := f.entry(assetKey)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if q := entry.quote; q != nil && f.usable(q, at) {
		observability.RecordPriceCacheHit()
		return q
	}
	observability.RecordPriceCacheMiss()

	price, err := f.client.FetchPrice(ctx, assetKey)
	if err != nil {
		observability.RecordDegradedQuote()
		f.logger.WithError(err).WithField("asset", assetKey).
			Warn("price fetch failed, degrading to zero")
		return &domain.PriceQuote{
			AssetKey:  assetKey,
			PriceUsd:  0,
			FetchedAt: f.now(),
			Source:    f.client.Source(),
			Degraded:  true,
		}
	}

	quote := &domain.PriceQuote{
		AssetKey:  assetKey,
		PriceUsd:  price,
		FetchedAt: f.now(),
		Source:    f.client.Source(),
	}
	entry.quote = quote
	return quote
}

// usable reports whether a cached quote can serve a request for the given
// transaction timestamp.
func (f *CachedFeed) usable(q *domain.PriceQuote, at time.Time) bool {
	now := f.now()
	if now.Sub(q.FetchedAt) > f.ttl {
		return false
	}
	// A quote fetched long before the transaction happened is stale for it;
	// a quote fetched after the transaction is always acceptable.
	if at.Sub(q.FetchedAt) > f.window {
		return false
	}
	return true
}

func (f *CachedFeed) entry(assetKey string) *cacheEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[assetKey]
	if !ok {
		e = &cacheEntry{}
		f.entries[assetKey] = e
	}
	return e
}
