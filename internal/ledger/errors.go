package ledger

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("balance update lost too many races")
	ErrAlreadyClaimed    = errors.New("referral reward already claimed")
	ErrSelfReferral      = errors.New("self referral")
	ErrReferrerNotFound  = errors.New("referrer not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
)
