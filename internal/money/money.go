package money

import (
	"errors"

	"github.com/shopspring/decimal" // Exact decimal arithmetic, no float currency math
)

// LitoshiExponent is the scale of the provider's minor unit: 1 LTC = 10^8 litoshi.
const LitoshiExponent = 8

// ErrInvalidAmount is returned for amounts that do not parse, are not strictly
// positive, or exceed the largest payout a single request may carry.
var ErrInvalidAmount = errors.New("invalid amount")

// MaxMinorUnits caps a single payout at 10^15 litoshi (ten million LTC),
// far beyond any real request yet small enough that adding a fee to an
// accepted amount can never overflow int64.
const MaxMinorUnits = int64(1e15)

var maxMinorUnits = decimal.NewFromInt(MaxMinorUnits)

// ToMinorUnits converts a user-facing decimal amount (major currency units,
// e.g. "0.0004") into the provider's integer minor units. The scaled value is
// rounded half-to-nearest; anything non-positive, non-numeric or beyond
// MaxMinorUnits is rejected.
func ToMinorUnits(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	scaled := d.Shift(LitoshiExponent).Round(0)
	if !scaled.IsPositive() || scaled.GreaterThan(maxMinorUnits) {
		return 0, ErrInvalidAmount
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits renders an integer minor-unit value back as a decimal string
// in major units. Exact inverse of ToMinorUnits for integer inputs.
func FromMinorUnits(v int64) string {
	return decimal.New(v, -LitoshiExponent).String()
}
