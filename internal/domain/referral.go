package domain

// ReferralEvent Model
//
// Written at most once per referred user; the unique index on ReferredID backs
// the ledger's already-claimed guarantee.
type ReferralEvent struct {
	ID             uint  `gorm:"primaryKey"`           // Primary key
	ReferrerID     uint  `gorm:"index;not null"`       // Account that owns the redeemed code
	ReferredID     uint  `gorm:"uniqueIndex;not null"` // Account that redeemed the code
	ReferrerReward int64 // Reward credited to the referrer, minor units
	ReferredReward int64 // Reward credited to the referred user, minor units
	CreatedAt      int64 `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
