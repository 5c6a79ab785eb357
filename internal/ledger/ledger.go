package ledger

import (
	"context"
	"errors"

	"payout_system/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxReserveAttempts bounds the compare-and-swap retry loop in Reserve before
// the contention is surfaced as ErrConflict.
const maxReserveAttempts = 4

// Ledger owns every mutation of a user's balance and referral state. All other
// packages read through it and never touch those columns directly.
type Ledger struct {
	db *gorm.DB
}

// New creates a Ledger on top of a gorm connection.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// GetUser returns the user by id.
func (l *Ledger) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	var user domain.User
	if err := l.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByReferralCode resolves a referral code to its owning account. The
// unique index on referral_code guarantees at most one match.
func (l *Ledger) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	var user domain.User
	if err := l.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetPayoutAddress binds a provider-validated address to the account.
func (l *Ledger) SetPayoutAddress(ctx context.Context, userID uint, address string) error {
	res := l.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("payout_address", address)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Reserve atomically debits amount from the user's balance, iff the balance
// covers it at commit time. Sufficiency is always re-evaluated against the
// value the conditional update is issued with, so an interleaving writer makes
// this attempt lose the race and re-read rather than overdraft.
func (l *Ledger) Reserve(ctx context.Context, userID uint, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		var user domain.User
		if err := l.db.WithContext(ctx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrUserNotFound
			}
			return 0, err
		}
		if user.Balance < amount {
			return 0, ErrInsufficientFunds
		}

		newBalance := user.Balance - amount
		res := l.db.WithContext(ctx).Model(&domain.User{}).
			Where("id = ? AND balance = ?", userID, user.Balance).
			Update("balance", newBalance)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 1 {
			return newBalance, nil
		}
		// Lost the race to a concurrent writer; re-read and re-evaluate.
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"attempt": attempt + 1,
		}).Debug("Reserve lost optimistic write, retrying")
	}
	return 0, ErrConflict
}

// Release unconditionally credits amount back to the user's balance. Used only
// to compensate a prior Reserve after a downstream failure; it is never
// rejected for insufficiency and always computes off the current stored value.
// Duplicate compensation must be prevented by the caller, not here.
func (l *Ledger) Release(ctx context.Context, userID uint, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var newBalance int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		newBalance = user.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ApplyReferral credits both sides of a referral in a single database
// transaction: the referred user gets referredReward and is marked claimed,
// the referrer gets referrerReward and a bumped referral count, and one
// ReferralEvent is recorded. ReferralClaimed is re-checked under a row lock at
// write time, so two concurrent applications for the same referred account
// cannot both commit.
func (l *Ledger) ApplyReferral(ctx context.Context, referredID, referrerID uint, referredReward, referrerReward int64) error {
	if referredID == referrerID {
		return ErrSelfReferral
	}
	if referredReward < 0 || referrerReward < 0 {
		return ErrInvalidAmount
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var referred domain.User
		if err := lockForUpdate(tx).First(&referred, referredID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		// The moment-of-write check: an earlier unlocked read may be stale.
		if referred.ReferralClaimed {
			return ErrAlreadyClaimed
		}

		var referrer domain.User
		if err := lockForUpdate(tx).First(&referrer, referrerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferrerNotFound
			}
			return err
		}

		if err := tx.Model(&referred).Updates(map[string]any{
			"balance":          gorm.Expr("balance + ?", referredReward),
			"referred_by_code": referrer.ReferralCode,
			"referral_claimed": true,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&referrer).Updates(map[string]any{
			"balance":              gorm.Expr("balance + ?", referrerReward),
			"referred_users_count": gorm.Expr("referred_users_count + 1"),
		}).Error; err != nil {
			return err
		}

		event := domain.ReferralEvent{
			ReferrerID:     referrerID,
			ReferredID:     referredID,
			ReferrerReward: referrerReward,
			ReferredReward: referredReward,
		}
		return tx.Create(&event).Error
	})
}

// lockForUpdate adds a FOR UPDATE row lock where the dialect supports it.
// SQLite (the test store) has no row locks; its single-writer model serializes
// writes, and the unique index on referral_events.referred_id still rejects a
// double apply.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// RecordTransaction appends a terminal withdrawal record. Records are
// append-only; nothing in this system updates or deletes them.
func (l *Ledger) RecordTransaction(ctx context.Context, rec *domain.Transaction) error {
	return l.db.WithContext(ctx).Create(rec).Error
}
