package service

import (
	"context"
	"errors"
	"regexp"

	"payout_system/internal/domain"
	"payout_system/internal/ledger"

	"github.com/sirupsen/logrus"
)

// referralCodePattern matches the codes assigned at registration: 6-12
// uppercase alphanumerics.
var referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)

// ReferralLedger is the slice of the ledger the referral flow needs.
type ReferralLedger interface {
	GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error)
	ApplyReferral(ctx context.Context, referredID, referrerID uint, referredReward, referrerReward int64) error
}

// Referral applies referral codes: resolve the code to its owner, reject
// self-referral, then hand the two-account update to the ledger in one atomic
// step. There is no compensation path because the ledger update is
// all-or-nothing.
type Referral struct {
	ledger         ReferralLedger
	referredReward int64 // credited to the account redeeming the code
	referrerReward int64 // credited to the code's owner
}

// NewReferral wires the referral orchestrator; both rewards come from
// configuration.
func NewReferral(l ReferralLedger, referredReward, referrerReward int64) *Referral {
	return &Referral{ledger: l, referredReward: referredReward, referrerReward: referrerReward}
}

// Apply redeems code for userID and returns the reward credited to them.
func (s *Referral) Apply(ctx context.Context, userID uint, code string) (int64, error) {
	if code == "" {
		return 0, &ValidationError{Msg: "referral code is required"}
	}
	if !referralCodePattern.MatchString(code) {
		return 0, ErrInvalidReferralCode
	}

	referrer, err := s.ledger.GetUserByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			return 0, ErrInvalidReferralCode
		}
		return 0, err
	}

	// Rejected here so a user redeeming their own code never reaches the
	// ledger at all.
	if referrer.ID == userID {
		return 0, ledger.ErrSelfReferral
	}

	if err := s.ledger.ApplyReferral(ctx, userID, referrer.ID, s.referredReward, s.referrerReward); err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"referred_id":     userID,
		"referrer_id":     referrer.ID,
		"referred_reward": s.referredReward,
		"referrer_reward": s.referrerReward,
	}).Info("Referral applied")
	return s.referredReward, nil
}

var _ ReferralLedger = (*ledger.Ledger)(nil)
