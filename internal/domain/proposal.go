package domain

// Proposal is a computed spare-change contribution for one transaction.
// Proposals are ephemeral; only tracker-applied round-ups reach the ledger.
type Proposal struct {
	Signature            string  // source transaction signature
	Type                 string  // round_up | percentage
	OriginalAmountNative float64 // transaction amount, native units
	OriginalAmountUsd    float64 // transaction amount, USD at price_used
	SpareChangeNative    float64 // contribution, native units
	SpareChangeUsd       float64 // contribution, USD
	PriceUsed            float64 // USD price applied
	PriceDegraded        bool    // price feed degraded to zero for this proposal
}

// Proposal type constants
const (
	ProposalTypeRoundUp    = "round_up"
	ProposalTypePercentage = "percentage"
)
