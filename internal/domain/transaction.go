package domain

// Transaction types. Every withdrawal attempt that reached the point of
// committing a balance debit leaves exactly one terminal record.
const (
	TxTypeWithdrawal          = "withdrawal"
	TxTypeWithdrawalFailed    = "withdrawal_failed"
	TxTypeReconciliationError = "withdrawal_reconciliation_error"
)

// Transaction statuses
const (
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusUnknown   = "unknown" // provider outcome ambiguous, needs operator reconciliation
)

// Transaction Model (append-only)
type Transaction struct {
	ID                 uint   `gorm:"primaryKey"`           // Primary key
	UserID             uint   `gorm:"index;not null"`       // Owning user
	Reference          string `gorm:"uniqueIndex;not null"` // Opaque per-attempt reference (uuid)
	Type               string `gorm:"not null"`             // withdrawal, withdrawal_failed, withdrawal_reconciliation_error
	Amount             int64  // Requested amount in minor units
	Fee                int64  // Fee charged in minor units
	DestinationAddress string // FaucetPay address the payout targeted
	Status             string // completed, failed, unknown
	ProviderReference  string // FaucetPay payout id, when the provider returned one
	ErrorMessage       string // Failure detail, empty on success
	CreatedAt          int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
