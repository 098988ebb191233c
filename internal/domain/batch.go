package domain

// PayoutBatch aggregates a snapshot of unprocessed ledger rows for one wallet.
// Corresponds to payout_batches table in PostgreSQL.
type PayoutBatch struct {
	ID                     string  // UUID primary key
	WalletAddress          string  // FK to wallets
	TotalSpareChangeUsd    float64 // sum of member rows' spare_change_usd
	TotalSpareChangeNative float64 // sum of member rows' spare_change_native
	TransactionCount       int     // exact number of member rows
	Status                 string  // pending | processing | completed | failed
	CreatedAt              int64   // Unix timestamp in milliseconds
	UpdatedAt              int64   // Unix timestamp in milliseconds
}

// Batch status constants
const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// ValidBatchTransition reports whether a batch may move from one status
// to another. Only pending→processing→{completed,failed} is allowed;
// completed and failed are terminal.
func ValidBatchTransition(from, to string) bool {
	switch from {
	case BatchStatusPending:
		return to == BatchStatusProcessing
	case BatchStatusProcessing:
		return to == BatchStatusCompleted || to == BatchStatusFailed
	default:
		return false
	}
}
