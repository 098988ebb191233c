package domain

// Wallet represents a connected wallet account.
// Corresponds to wallets table in PostgreSQL.
type Wallet struct {
	Address                   string  // base58 wallet address, primary key
	CurrentAccumulatedUsd     float64 // spare change not yet batched, USD
	CurrentAccumulatedNative  float64 // spare change not yet batched, SOL
	LifetimeAccumulatedUsd    float64 // total spare change ever accrued, USD
	LifetimeAccumulatedNative float64 // total spare change ever accrued, SOL
	TotalPayouts              int     // number of payout batches created
	LastSeenSignature         string  // newest processed signature, empty until first sync
	CreatedAt                 int64   // Unix timestamp in milliseconds
	UpdatedAt                 int64   // Unix timestamp in milliseconds
}
