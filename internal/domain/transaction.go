package domain

// WalletTransaction is a transaction observed for a wallet, as returned by
// the transaction source (newest-first ordering).
type WalletTransaction struct {
	Signature string   // unique transaction signature
	Slot      int64    // Solana slot number
	BlockTime int64    // Unix timestamp in seconds, 0 if unknown
	Success   bool     // false when the transaction errored on chain
	Direction string   // sent | received | unknown
	Amount    *float64 // transferred amount in native units, nil if not decodable
	TokenMint string   // SPL token mint, empty for native SOL
}

// Transaction direction constants
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
	DirectionUnknown  = "unknown"
)
