package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Balances are stored as int64 minor units (two fraction digits) so repeated
// deposit/withdraw/transfer sequences stay exact. Amounts cross the API
// boundary as decimal strings and are converted here.

const minorUnitExponent = 2

var ErrAmountPrecision = errors.New("amount must have at most two decimal places")
var ErrAmountOutOfRange = errors.New("amount exceeds the representable balance range")

// MinorUnitsFromDecimal converts a decimal amount to minor units, rejecting
// values with sub-cent precision or beyond the int64 minor-unit range.
func MinorUnitsFromDecimal(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(minorUnitExponent)
	if !shifted.IsInteger() {
		return 0, ErrAmountPrecision
	}
	// IntPart alone wraps silently outside int64 range.
	b := shifted.BigInt()
	if !b.IsInt64() {
		return 0, ErrAmountOutOfRange
	}
	return b.Int64(), nil
}

// DecimalFromMinorUnits converts minor units back to a decimal amount.
func DecimalFromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -minorUnitExponent)
}

// FormatMinorUnits renders minor units as a fixed two-decimal string, the
// representation used in every API response.
func FormatMinorUnits(units int64) string {
	return DecimalFromMinorUnits(units).StringFixed(minorUnitExponent)
}
