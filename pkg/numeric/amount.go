// Package numeric converts between human-readable decimal amounts and
// the venue's fixed-point wire representations. Everything that ends up
// inside a signed payload must pass through here; binary floats are only
// accepted at the boundary and immediately converted to exact decimals.
package numeric

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// BaseUnitDecimals is the venue's fixed-point scale for amounts.
const BaseUnitDecimals = 18

// PriceDecimals is the venue's price precision.
const PriceDecimals = 3

var baseUnitScale = decimal.New(1, BaseUnitDecimals)

// ToBaseUnits converts a decimal amount to the venue's 18-decimal integer
// representation, truncating toward zero. Truncation (never rounding up)
// keeps the signed amount at or below what the account actually holds;
// the venue rejects overspend.
func ToBaseUnits(amount decimal.Decimal) *big.Int {
	scaled := amount.Mul(baseUnitScale).Truncate(0)
	return scaled.BigInt()
}

// ToBaseUnitsString is ToBaseUnits rendered for JSON payloads.
func ToBaseUnitsString(amount decimal.Decimal) string {
	return ToBaseUnits(amount).String()
}

// QuantizePrice rounds a price to exactly 3 decimal places, half-up.
// The result is an exact decimal so the payload string and the signed
// amounts derived from it can never disagree.
func QuantizePrice(price decimal.Decimal) decimal.Decimal {
	return price.Round(PriceDecimals)
}

// QuantizePriceFloat quantizes a binary-float price coming from order
// book math. The float is printed at shortest round-trip form first, the
// same way the original payloads were built, so 0.615 stays 0.615.
func QuantizePriceFloat(price float64) decimal.Decimal {
	return QuantizePrice(decimal.NewFromFloat(price))
}

// PriceString renders a quantized price with exactly 3 decimal places.
func PriceString(price decimal.Decimal) string {
	return QuantizePrice(price).StringFixed(PriceDecimals)
}

// FromString parses a decimal amount, rejecting empty input.
func FromString(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty decimal")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}
