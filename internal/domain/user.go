package domain

// User Model
//
// Balance is denominated in the provider's minor unit (litoshi for LTC) and
// is only ever mutated with integer arithmetic through the ledger package.
type User struct {
	ID       uint   `gorm:"primaryKey"`      // Primary key
	Username string `gorm:"unique;not null"` // Unique username
	Password string `gorm:"not null"`        // Hashed password
	Role     string `gorm:"default:user"`    // Role: user or admin

	Balance       int64  `gorm:"not null;default:0"` // Balance in minor units, never negative
	PayoutAddress string // FaucetPay address previously validated and bound to this account

	ReferralCode       string  `gorm:"uniqueIndex;not null"` // Code this user hands out, assigned at registration
	ReferredByCode     *string // Code this user redeemed, set at most once
	ReferralClaimed    bool    `gorm:"not null;default:false"` // True once this account received its referral reward
	ReferredUsersCount int64   `gorm:"not null;default:0"`     // Successful distinct referrals this account originated
}
