package service

import (
	"context"
	"errors"

	"payout_system/internal/domain"
	"payout_system/internal/faucetpay"
	"payout_system/internal/ledger"
	"payout_system/internal/money"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WithdrawalLedger is the slice of the ledger the withdrawal flow needs.
type WithdrawalLedger interface {
	GetUser(ctx context.Context, userID uint) (*domain.User, error)
	SetPayoutAddress(ctx context.Context, userID uint, address string) error
	Reserve(ctx context.Context, userID uint, amount int64) (int64, error)
	Release(ctx context.Context, userID uint, amount int64) (int64, error)
	RecordTransaction(ctx context.Context, rec *domain.Transaction) error
}

// PayoutGateway is the outbound FaucetPay surface.
type PayoutGateway interface {
	CheckAddress(ctx context.Context, address string) (*faucetpay.CheckResult, error)
	Send(ctx context.Context, address string, amount int64) (*faucetpay.SendResult, error)
}

// IdempotencyGuard claims a client-supplied idempotency key. Begin returns
// false when the key has already been claimed by an earlier request. End
// releases the claim again so the key stays burned only for outcomes where a
// retry could double-send: successes and ambiguous failures.
type IdempotencyGuard interface {
	Begin(ctx context.Context, userID uint, key string) (bool, error)
	End(ctx context.Context, userID uint, key string) error
}

// WithdrawalResult is the happy-path outcome of a withdrawal.
type WithdrawalResult struct {
	PayoutID string // FaucetPay payout identifier
	Balance  int64  // Post-debit balance in minor units
}

// Withdrawal orchestrates the full withdraw flow: validation, reservation,
// provider send, and the compensation policy for every way the send can fail.
// The debit always happens before the provider call, so a crash between the
// two leaves a refundable reservation rather than a double-pay risk.
type Withdrawal struct {
	ledger  WithdrawalLedger
	gateway PayoutGateway
	idem    IdempotencyGuard // may be nil; then no idempotency guard is applied
	fee     int64            // fixed fee in minor units
	minimum int64            // minimum withdrawal amount in minor units
}

// NewWithdrawal wires the withdrawal orchestrator. fee and minimum come from
// configuration, never from constants.
func NewWithdrawal(l WithdrawalLedger, g PayoutGateway, idem IdempotencyGuard, fee, minimum int64) *Withdrawal {
	return &Withdrawal{ledger: l, gateway: g, idem: idem, fee: fee, minimum: minimum}
}

// ValidateAddress checks the address with FaucetPay and, on success, binds it
// to the account as the only destination later withdrawals may target.
func (s *Withdrawal) ValidateAddress(ctx context.Context, userID uint, address string) (string, error) {
	if address == "" {
		return "", &ValidationError{Msg: "address is required"}
	}

	res, err := s.gateway.CheckAddress(ctx, address)
	if err != nil {
		if errors.Is(err, faucetpay.ErrAddressNotFound) {
			return "", &ValidationError{Msg: "address does not belong to any FaucetPay user"}
		}
		var te *faucetpay.TransportError
		if errors.As(err, &te) {
			return "", ErrTransport
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Address validation failed at provider")
		return "", err
	}

	if err := s.ledger.SetPayoutAddress(ctx, userID, address); err != nil {
		return "", err
	}
	return res.PayoutUserHash, nil
}

// Withdraw runs the state machine Validated -> Reserved -> PayoutSent ->
// Completed for one request. amount is the client-supplied decimal string in
// major units; idemKey is optional.
func (s *Withdrawal) Withdraw(ctx context.Context, userID uint, address, amount, idemKey string) (*WithdrawalResult, error) {
	// Validated: everything here rejects before any balance mutation and
	// without leaving a transaction record.
	if address == "" {
		return nil, &ValidationError{Msg: "address is required"}
	}
	minor, err := money.ToMinorUnits(amount)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid amount"}
	}
	if minor < s.minimum {
		return nil, &ValidationError{Msg: "amount below minimum withdrawal of " + money.FromMinorUnits(s.minimum)}
	}

	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// The request-supplied address is never trusted on its own; it must match
	// the destination previously validated and bound to the account.
	if user.PayoutAddress == "" || user.PayoutAddress != address {
		return nil, &ValidationError{Msg: "address does not match the validated payout address"}
	}

	if s.idem != nil && idemKey != "" {
		fresh, err := s.idem.Begin(ctx, userID, idemKey)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return nil, ErrDuplicateRequest
		}
	}

	total := minor + s.fee
	reference := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"reference": reference,
		"amount":    minor,
		"fee":       s.fee,
	})

	// Reserved
	newBalance, err := s.ledger.Reserve(ctx, userID, total)
	if err != nil {
		s.releaseClaim(ctx, userID, idemKey)
		return nil, err
	}
	log.Info("Withdrawal reserved")

	// PayoutSent
	sent, err := s.gateway.Send(ctx, address, minor)
	if err != nil {
		var ae *faucetpay.AmbiguousResponseError
		if errors.As(err, &ae) {
			// The provider reported success without the details a real success
			// carries. The payout may have gone out, so the debit stands and
			// the record flags it for an operator instead of releasing.
			log.WithFields(logrus.Fields{"error": ae.Error()}).
				Error("Provider response ambiguous, manual reconciliation required")
			s.recordBestEffort(ctx, &domain.Transaction{
				UserID:             userID,
				Reference:          reference,
				Type:               domain.TxTypeReconciliationError,
				Amount:             minor,
				Fee:                s.fee,
				DestinationAddress: address,
				Status:             domain.TxStatusUnknown,
				ErrorMessage:       ae.Error(),
			})
			return nil, ErrReconciliation
		}
		return nil, s.compensateAndSettleClaim(ctx, userID, total, minor, address, reference, idemKey, err, log)
	}

	// Completed
	rec := &domain.Transaction{
		UserID:             userID,
		Reference:          reference,
		Type:               domain.TxTypeWithdrawal,
		Amount:             minor,
		Fee:                s.fee,
		DestinationAddress: address,
		Status:             domain.TxStatusCompleted,
		ProviderReference:  sent.PayoutID,
	}
	if err := s.ledger.RecordTransaction(ctx, rec); err != nil {
		// The money already left the provider. Compensating here would risk a
		// double-pay on retry, so this surfaces as a reconciliation error for
		// an operator instead.
		log.WithFields(logrus.Fields{"payout_id": sent.PayoutID, "error": err.Error()}).
			Error("Payout sent but completion record failed, manual reconciliation required")
		s.recordBestEffort(ctx, &domain.Transaction{
			UserID:             userID,
			Reference:          reference + "-reconcile",
			Type:               domain.TxTypeReconciliationError,
			Amount:             minor,
			Fee:                s.fee,
			DestinationAddress: address,
			Status:             domain.TxStatusUnknown,
			ProviderReference:  sent.PayoutID,
			ErrorMessage:       "completion record write failed: " + err.Error(),
		})
		return nil, ErrReconciliation
	}

	log.WithFields(logrus.Fields{"payout_id": sent.PayoutID, "balance": newBalance}).Info("Withdrawal completed")
	return &WithdrawalResult{PayoutID: sent.PayoutID, Balance: newBalance}, nil
}

// compensateAndSettleClaim releases the reservation after a failed provider
// send and writes the terminal withdrawal_failed record, then maps the send
// error into the service taxonomy. Deterministic failures also give the
// idempotency key back so the client can retry with it.
func (s *Withdrawal) compensateAndSettleClaim(ctx context.Context, userID uint, total, minor int64, address, reference, idemKey string, sendErr error, log *logrus.Entry) error {
	if _, err := s.ledger.Release(ctx, userID, total); err != nil {
		// The release itself failing leaves the user debited with no payout:
		// operator territory, same severity as a reconciliation error.
		log.WithFields(logrus.Fields{"error": err.Error()}).Error("Compensation release failed after provider error")
		return ErrReconciliation
	}

	rec := &domain.Transaction{
		UserID:             userID,
		Reference:          reference,
		Type:               domain.TxTypeWithdrawalFailed,
		Amount:             minor,
		Fee:                s.fee,
		DestinationAddress: address,
		Status:             domain.TxStatusFailed,
	}

	var te *faucetpay.TransportError
	var re *faucetpay.RejectedError
	switch {
	case errors.As(sendErr, &te):
		// Outcome ambiguous: the payout may or may not have gone out. The
		// release above favors never under-crediting the user and the record
		// flags the ambiguity for manual reconciliation.
		rec.Status = domain.TxStatusUnknown
		rec.ErrorMessage = "transport failure, provider outcome ambiguous: " + te.Error()
		s.recordBestEffort(ctx, rec)
		log.Warn("Withdrawal compensated after transport failure")
		return ErrTransport
	case errors.As(sendErr, &re):
		rec.ErrorMessage = re.Reason
		s.recordBestEffort(ctx, rec)
		s.releaseClaim(ctx, userID, idemKey)
		log.WithFields(logrus.Fields{"reason": re.Reason}).Info("Withdrawal compensated after provider rejection")
		return &ProviderRejectedError{Reason: re.Reason}
	default:
		rec.ErrorMessage = sendErr.Error()
		s.recordBestEffort(ctx, rec)
		s.releaseClaim(ctx, userID, idemKey)
		log.WithFields(logrus.Fields{"error": sendErr.Error()}).Error("Withdrawal compensated after provider error")
		return ErrProvider
	}
}

// releaseClaim gives an idempotency key back after a failure the provider
// definitely did not act on. Best effort: a burned key only delays a retry.
func (s *Withdrawal) releaseClaim(ctx context.Context, userID uint, idemKey string) {
	if s.idem == nil || idemKey == "" {
		return
	}
	if err := s.idem.End(ctx, userID, idemKey); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).
			Warn("Failed to release idempotency key")
	}
}

// recordBestEffort writes a terminal record, logging instead of failing the
// request when the write itself errors.
func (s *Withdrawal) recordBestEffort(ctx context.Context, rec *domain.Transaction) {
	if err := s.ledger.RecordTransaction(ctx, rec); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":   rec.UserID,
			"reference": rec.Reference,
			"type":      rec.Type,
			"error":     err.Error(),
		}).Error("Failed to write terminal withdrawal record")
	}
}

var _ WithdrawalLedger = (*ledger.Ledger)(nil)
