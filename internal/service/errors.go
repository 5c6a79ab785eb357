package service

import (
	"errors"
	"fmt"
)

// ValidationError is bad input rejected before any balance mutation. The
// message is safe to show to the client so it can correct the request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ProviderRejectedError means FaucetPay explicitly declined the payout after
// funds were reserved; the reservation has been released.
type ProviderRejectedError struct {
	Reason string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("payout rejected by provider: %s", e.Reason)
}

var (
	// ErrProvider: the provider answered with something this system cannot
	// interpret. Compensated and recorded like a rejection, but reported as an
	// internal failure.
	ErrProvider = errors.New("payout provider error")

	// ErrTransport: the provider call failed at the network level after a
	// reservation; the reservation was released but the provider outcome is
	// ambiguous and flagged for reconciliation.
	ErrTransport = errors.New("payout provider unreachable")

	// ErrReconciliation: the provider sent the payout but recording it
	// failed. Never compensated and never retried automatically.
	ErrReconciliation = errors.New("payout sent but could not be recorded")

	// ErrDuplicateRequest: the idempotency key was already used.
	ErrDuplicateRequest = errors.New("duplicate withdrawal request")

	// ErrInvalidReferralCode: the code does not resolve to exactly one account.
	ErrInvalidReferralCode = errors.New("invalid referral code")
)
