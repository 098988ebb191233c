// Package proposal computes spare-change contribution proposals from wallet
// transactions. The engine is pure besides price feed reads.
package proposal

import (
	"context"
	"math"
	"time"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/pricing"
)

// Config controls which proposal laws run and how amounts are bounded.
type Config struct {
	RoundUpEnabled    bool     // emit ceil(amount)-amount proposals
	PercentageEnabled bool     // emit amount*rate/100 proposals
	PercentageRate    float64  // percent of the amount, e.g. 1.0 for 1%
	MinProposalAmount float64  // drop proposals below this native amount
	MaxProposalAmount *float64 // clamp proposals to this native amount, nil = no cap
}

// Engine turns transactions into spare-change proposals.
type Engine struct {
	feed pricing.Feed
}

// NewEngine creates a proposal engine backed by the given price feed.
func NewEngine(feed pricing.Feed) *Engine {
	return &Engine{feed: feed}
}

// Generate computes proposals for the eligible transactions in txs. Only
// sent, successful, amount-bearing transactions are considered. Each can
// yield a round-up proposal and a percentage proposal independently,
// round-up first, in transaction order.
func (e *Engine) Generate(ctx context.Context, txs []domain.WalletTransaction, cfg Config) ([]domain.Proposal, error) {
	proposals := make([]domain.Proposal, 0)

	for _, tx := range txs {
		if !Eligible(tx) {
			continue
		}
		amount := *tx.Amount

		quote := e.feed.PriceAt(ctx, tx.TokenMint, blockTime(tx))

		if cfg.RoundUpEnabled {
			if p, ok := e.build(tx, amount, RoundUpNative(amount), domain.ProposalTypeRoundUp, cfg, quote); ok {
				proposals = append(proposals, p)
			}
		}
		if cfg.PercentageEnabled {
			native := amount * (cfg.PercentageRate / 100)
			if p, ok := e.build(tx, amount, native, domain.ProposalTypePercentage, cfg, quote); ok {
				proposals = append(proposals, p)
			}
		}
	}

	return proposals, nil
}

// Eligible reports whether a transaction can produce proposals.
func Eligible(tx domain.WalletTransaction) bool {
	return tx.Direction == domain.DirectionSent && tx.Success && tx.Amount != nil && *tx.Amount > 0
}

// RoundUpNative returns the round-up spare change for a positive amount.
// The result is always in [0, 1).
func RoundUpNative(amount float64) float64 {
	return math.Ceil(amount) - amount
}

// Bound applies the min/max limits to a native spare-change amount. The
// second return is false when the amount falls below the minimum.
func Bound(native float64, cfg Config) (float64, bool) {
	if native < cfg.MinProposalAmount {
		return 0, false
	}
	if cfg.MaxProposalAmount != nil && native > *cfg.MaxProposalAmount {
		native = *cfg.MaxProposalAmount
	}
	return native, true
}

func (e *Engine) build(tx domain.WalletTransaction, amount, native float64, kind string, cfg Config, quote *domain.PriceQuote) (domain.Proposal, bool) {
	native, ok := Bound(native, cfg)
	if !ok {
		return domain.Proposal{}, false
	}
	return domain.Proposal{
		Signature:            tx.Signature,
		Type:                 kind,
		OriginalAmountNative: amount,
		OriginalAmountUsd:    amount * quote.PriceUsd,
		SpareChangeNative:    native,
		SpareChangeUsd:       native * quote.PriceUsd,
		PriceUsed:            quote.PriceUsd,
		PriceDegraded:        quote.Degraded,
	}, true
}

func blockTime(tx domain.WalletTransaction) time.Time {
	if tx.BlockTime == 0 {
		return time.Now()
	}
	return time.Unix(tx.BlockTime, 0)
}
