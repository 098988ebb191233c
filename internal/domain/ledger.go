package domain

// LedgerTransaction is one outgoing transfer converted to spare change.
// Corresponds to ledger_transactions table in PostgreSQL.
// (wallet_address, signature) is unique; reprocessing a signature is a no-op.
type LedgerTransaction struct {
	ID                   int64   // BIGSERIAL primary key
	WalletAddress        string  // FK to wallets
	Signature            string  // Solana transaction signature
	Timestamp            int64   // block time, Unix timestamp in milliseconds
	Slot                 int64   // Solana slot number
	OriginalAmountNative float64 // amount actually spent, SOL
	OriginalAmountUsd    float64 // amount actually spent, USD at price_used
	SpareChangeUsd       float64 // round-up contribution, USD
	SpareChangeNative    float64 // round-up contribution, SOL
	PriceUsed            float64 // USD price applied at conversion time
	PriceDegraded        bool    // price feed degraded to zero when this row was written
	IsProcessed          bool    // true once linked to a payout batch
	BatchID              *string // payout batch id, nil while unprocessed
	CreatedAt            int64   // record creation timestamp (ms)
}

// AccrualDailyTotal is a per-day aggregate of a wallet's accruals,
// produced by the analytics sink.
type AccrualDailyTotal struct {
	Day         string  // UTC day, YYYY-MM-DD
	TotalUsd    float64 // sum of spare_change_usd
	TotalNative float64 // sum of spare_change_native
	Count       int     // number of accruals
}
