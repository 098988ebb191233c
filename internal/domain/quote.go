package domain

import "time"

// PriceQuote is a USD price for an asset with provenance and freshness
// metadata. Quotes live only in the price cache and are never persisted.
type PriceQuote struct {
	AssetKey  string    // token mint, empty for native SOL
	PriceUsd  float64   // zero when Degraded is set
	FetchedAt time.Time // when the price was actually fetched
	Source    string    // feed label, e.g. "coingecko"
	Degraded  bool      // live fetch failed; price degraded to zero
}
