package service

import (
	"context"
	"errors"
	"testing"

	"payout_system/internal/domain"
	"payout_system/internal/faucetpay"
	"payout_system/internal/ledger"

	"github.com/stretchr/testify/require"
)

// fakeLedger records every call so tests can assert exactly which mutations a
// flow performed.
type fakeLedger struct {
	user *domain.User

	reserveErr error
	recordErr  map[string]error // by transaction type

	reserveCalls []int64
	releaseCalls []int64
	records      []domain.Transaction
	boundAddress string
}

func (f *fakeLedger) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	if f.user == nil || f.user.ID != userID {
		return nil, ledger.ErrUserNotFound
	}
	u := *f.user
	return &u, nil
}

func (f *fakeLedger) SetPayoutAddress(ctx context.Context, userID uint, address string) error {
	f.boundAddress = address
	return nil
}

func (f *fakeLedger) Reserve(ctx context.Context, userID uint, amount int64) (int64, error) {
	if f.reserveErr != nil {
		return 0, f.reserveErr
	}
	if f.user.Balance < amount {
		return 0, ledger.ErrInsufficientFunds
	}
	f.reserveCalls = append(f.reserveCalls, amount)
	f.user.Balance -= amount
	return f.user.Balance, nil
}

func (f *fakeLedger) Release(ctx context.Context, userID uint, amount int64) (int64, error) {
	f.releaseCalls = append(f.releaseCalls, amount)
	f.user.Balance += amount
	return f.user.Balance, nil
}

func (f *fakeLedger) RecordTransaction(ctx context.Context, rec *domain.Transaction) error {
	if err, ok := f.recordErr[rec.Type]; ok {
		return err
	}
	f.records = append(f.records, *rec)
	return nil
}

// fakeGateway answers with canned results per call.
type fakeGateway struct {
	checkResult *faucetpay.CheckResult
	checkErr    error
	sendResult  *faucetpay.SendResult
	sendErr     error
	sendCalls   int
}

func (f *fakeGateway) CheckAddress(ctx context.Context, address string) (*faucetpay.CheckResult, error) {
	return f.checkResult, f.checkErr
}

func (f *fakeGateway) Send(ctx context.Context, address string, amount int64) (*faucetpay.SendResult, error) {
	f.sendCalls++
	return f.sendResult, f.sendErr
}

type fakeGuard struct {
	fresh    bool
	keys     []string
	released []string
}

func (f *fakeGuard) Begin(ctx context.Context, userID uint, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.fresh, nil
}

func (f *fakeGuard) End(ctx context.Context, userID uint, key string) error {
	f.released = append(f.released, key)
	return nil
}

func newTestUser(balance int64) *domain.User {
	return &domain.User{
		ID:            1,
		Username:      "alice",
		Balance:       balance,
		PayoutAddress: "alice@example.com",
		ReferralCode:  "ALICE111",
	}
}

// Fee 1000, minimum 10000 throughout. Amounts are decimal LTC strings, so
// "0.0004" is 40000 litoshi.
func newWithdrawal(l WithdrawalLedger, g PayoutGateway, idem IdempotencyGuard) *Withdrawal {
	return NewWithdrawal(l, g, idem, 1000, 10000)
}

func TestWithdrawHappyPath(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{sendResult: &faucetpay.SendResult{PayoutID: "98765", ProviderBalance: 777}}
	s := newWithdrawal(led, gw, nil)

	res, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	require.NoError(t, err)
	require.Equal(t, "98765", res.PayoutID)
	require.Equal(t, int64(9000), res.Balance)

	// Debit happened before the send, for amount plus fee.
	require.Equal(t, []int64{41000}, led.reserveCalls)
	require.Empty(t, led.releaseCalls)
	require.Len(t, led.records, 1)
	require.Equal(t, domain.TxTypeWithdrawal, led.records[0].Type)
	require.Equal(t, domain.TxStatusCompleted, led.records[0].Status)
	require.Equal(t, "98765", led.records[0].ProviderReference)
	require.Equal(t, int64(40000), led.records[0].Amount)
	require.Equal(t, int64(1000), led.records[0].Fee)
}

func TestWithdrawValidationFailuresTouchNothing(t *testing.T) {
	cases := []struct {
		name    string
		address string
		amount  string
	}{
		{name: "missing address", address: "", amount: "0.0004"},
		{name: "invalid amount", address: "alice@example.com", amount: "abc"},
		{name: "negative amount", address: "alice@example.com", amount: "-1"},
		{name: "below minimum", address: "alice@example.com", amount: "0.00005"},
		{name: "address mismatch", address: "mallory@example.com", amount: "0.0004"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			led := &fakeLedger{user: newTestUser(50000)}
			gw := &fakeGateway{}
			s := newWithdrawal(led, gw, nil)

			_, err := s.Withdraw(context.Background(), 1, tc.address, tc.amount, "")
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			// No ledger call, no provider call, no record.
			require.Empty(t, led.reserveCalls)
			require.Zero(t, gw.sendCalls)
			require.Empty(t, led.records)
		})
	}
}

func TestWithdrawAmountAtMinimumPasses(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{sendResult: &faucetpay.SendResult{PayoutID: "1"}}
	s := newWithdrawal(led, gw, nil)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0001", "")
	require.NoError(t, err)
	require.Equal(t, []int64{11000}, led.reserveCalls)
}

func TestWithdrawNoBoundAddress(t *testing.T) {
	user := newTestUser(50000)
	user.PayoutAddress = ""
	led := &fakeLedger{user: user}
	s := newWithdrawal(led, &fakeGateway{}, nil)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	led := &fakeLedger{user: newTestUser(31000)}
	gw := &fakeGateway{}
	s := newWithdrawal(led, gw, nil)

	// 40000 + 1000 fee > 31000
	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Zero(t, gw.sendCalls)
	require.Empty(t, led.records)
}

func TestWithdrawProviderRejectedCompensates(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{sendErr: &faucetpay.RejectedError{Status: 450, Reason: "Insufficient faucet balance"}}
	s := newWithdrawal(led, gw, nil)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	var pr *ProviderRejectedError
	require.ErrorAs(t, err, &pr)

	// Balance restored in full, exactly one failed record with the reason.
	require.Equal(t, []int64{41000}, led.releaseCalls)
	require.Equal(t, int64(50000), led.user.Balance)
	require.Len(t, led.records, 1)
	require.Equal(t, domain.TxTypeWithdrawalFailed, led.records[0].Type)
	require.Equal(t, domain.TxStatusFailed, led.records[0].Status)
	require.Contains(t, led.records[0].ErrorMessage, "Insufficient faucet balance")
}

func TestWithdrawProviderErrorCompensates(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{sendErr: &faucetpay.ProviderError{Message: "unparseable response"}}
	s := newWithdrawal(led, gw, nil)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	require.ErrorIs(t, err, ErrProvider)
	require.Equal(t, []int64{41000}, led.releaseCalls)
	require.Len(t, led.records, 1)
	require.Equal(t, domain.TxTypeWithdrawalFailed, led.records[0].Type)
}

func TestWithdrawTransportErrorCompensatesAndFlagsAmbiguity(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{sendErr: &faucetpay.TransportError{Err: errors.New("dial tcp: timeout")}}
	s := newWithdrawal(led, gw, nil)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	require.ErrorIs(t, err, ErrTransport)

	require.Equal(t, []int64{41000}, led.releaseCalls)
	require.Len(t, led.records, 1)
	require.Equal(t, domain.TxTypeWithdrawalFailed, led.records[0].Type)
	require.Equal(t, domain.TxStatusUnknown, led.records[0].Status)
	require.Contains(t, led.records[0].ErrorMessage, "ambiguous")
}

func TestWithdrawAmbiguousProviderResponseNeverCompensates(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{sendErr: &faucetpay.AmbiguousResponseError{Message: ""}}
	s := newWithdrawal(led, gw, nil)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	require.ErrorIs(t, err, ErrReconciliation)

	// A success status without payout details may still mean the payout went
	// out, so releasing here could pay the user twice. The debit stands.
	require.Empty(t, led.releaseCalls)
	require.Equal(t, int64(9000), led.user.Balance)
	require.Len(t, led.records, 1)
	require.Equal(t, domain.TxTypeReconciliationError, led.records[0].Type)
	require.Equal(t, domain.TxStatusUnknown, led.records[0].Status)
}

func TestWithdrawReconciliationErrorNeverCompensates(t *testing.T) {
	led := &fakeLedger{
		user:      newTestUser(50000),
		recordErr: map[string]error{domain.TxTypeWithdrawal: errors.New("store outage")},
	}
	gw := &fakeGateway{sendResult: &faucetpay.SendResult{PayoutID: "98765"}}
	s := newWithdrawal(led, gw, nil)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "")
	require.ErrorIs(t, err, ErrReconciliation)

	// Money already left the provider: the debit must stand.
	require.Empty(t, led.releaseCalls)
	require.Equal(t, int64(9000), led.user.Balance)
	// The best-effort reconciliation marker carries the payout id.
	require.Len(t, led.records, 1)
	require.Equal(t, domain.TxTypeReconciliationError, led.records[0].Type)
	require.Equal(t, "98765", led.records[0].ProviderReference)
}

func TestWithdrawDuplicateIdempotencyKey(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{}
	guard := &fakeGuard{fresh: false}
	s := newWithdrawal(led, gw, guard)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "retry-1")
	require.ErrorIs(t, err, ErrDuplicateRequest)
	require.Equal(t, []string{"retry-1"}, guard.keys)
	require.Empty(t, led.reserveCalls)
	require.Zero(t, gw.sendCalls)
}

func TestWithdrawFreshIdempotencyKeyProceeds(t *testing.T) {
	led := &fakeLedger{user: newTestUser(50000)}
	gw := &fakeGateway{sendResult: &faucetpay.SendResult{PayoutID: "1"}}
	guard := &fakeGuard{fresh: true}
	s := newWithdrawal(led, gw, guard)

	_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "retry-1")
	require.NoError(t, err)
	require.Equal(t, 1, gw.sendCalls)
	// Success holds the claim so a replay with the same key is refused.
	require.Empty(t, guard.released)
}

func TestWithdrawReleasesIdempotencyKeyOnDeterministicFailure(t *testing.T) {
	cases := []struct {
		name    string
		ledger  *fakeLedger
		sendErr error
	}{
		{
			name:    "provider rejected",
			ledger:  &fakeLedger{user: newTestUser(50000)},
			sendErr: &faucetpay.RejectedError{Status: 450, Reason: "Insufficient faucet balance"},
		},
		{
			name:    "provider error",
			ledger:  &fakeLedger{user: newTestUser(50000)},
			sendErr: &faucetpay.ProviderError{Message: "unparseable response"},
		},
		{
			name:   "insufficient funds",
			ledger: &fakeLedger{user: newTestUser(31000)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{sendErr: tc.sendErr}
			guard := &fakeGuard{fresh: true}
			s := newWithdrawal(tc.ledger, gw, guard)

			_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "retry-1")
			require.Error(t, err)
			// The provider definitely did not pay, so the same key must be
			// usable again.
			require.Equal(t, []string{"retry-1"}, guard.released)
		})
	}
}

func TestWithdrawKeepsIdempotencyKeyOnAmbiguousFailure(t *testing.T) {
	cases := []struct {
		name    string
		sendErr error
	}{
		{name: "transport failure", sendErr: &faucetpay.TransportError{Err: errors.New("dial tcp: timeout")}},
		{name: "ambiguous response", sendErr: &faucetpay.AmbiguousResponseError{Message: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			led := &fakeLedger{user: newTestUser(50000)}
			gw := &fakeGateway{sendErr: tc.sendErr}
			guard := &fakeGuard{fresh: true}
			s := newWithdrawal(led, gw, guard)

			_, err := s.Withdraw(context.Background(), 1, "alice@example.com", "0.0004", "retry-1")
			require.Error(t, err)
			// The payout may have gone out; a blind retry could double-send.
			require.Empty(t, guard.released)
		})
	}
}

func TestValidateAddress(t *testing.T) {
	led := &fakeLedger{user: newTestUser(0)}
	gw := &fakeGateway{checkResult: &faucetpay.CheckResult{PayoutUserHash: "hash123"}}
	s := newWithdrawal(led, gw, nil)

	hash, err := s.ValidateAddress(context.Background(), 1, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "hash123", hash)
	require.Equal(t, "alice@example.com", led.boundAddress)
}

func TestValidateAddressNotFound(t *testing.T) {
	led := &fakeLedger{user: newTestUser(0)}
	gw := &fakeGateway{checkErr: faucetpay.ErrAddressNotFound}
	s := newWithdrawal(led, gw, nil)

	_, err := s.ValidateAddress(context.Background(), 1, "nobody@example.com")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Empty(t, led.boundAddress)
}

func TestValidateAddressTransportError(t *testing.T) {
	led := &fakeLedger{user: newTestUser(0)}
	gw := &fakeGateway{checkErr: &faucetpay.TransportError{Err: errors.New("timeout")}}
	s := newWithdrawal(led, gw, nil)

	_, err := s.ValidateAddress(context.Background(), 1, "alice@example.com")
	require.ErrorIs(t, err, ErrTransport)
	require.Empty(t, led.boundAddress)
}
