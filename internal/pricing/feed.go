package pricing

import (
	"context"
	"time"

	"solana-roundup/internal/domain"
)

// Client fetches live USD prices for assets.
type Client interface {
	// FetchPrice returns the current USD price for an asset key.
	// An empty key means native SOL; otherwise the key is an SPL token mint.
	FetchPrice(ctx context.Context, assetKey string) (float64, error)

	// Source returns the provenance label attached to quotes.
	Source() string
}

// Feed serves USD price quotes for assets at or near a given time.
//
// PriceAt never fails: when the live fetch is unavailable the quote
// degrades to a zero price with Degraded set, so callers can choose to
// skip or flag the resulting values instead of aborting. The requested
// time is an approximation hint only; no historical price history is
// kept, and callers distinguish "approximated historical" from "fresh"
// by comparing the quote's FetchedAt with the time they asked for.
type Feed interface {
	PriceAt(ctx context.Context, assetKey string, at time.Time) *domain.PriceQuote
}
