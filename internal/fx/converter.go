// Package fx converts local-currency amounts to USD for card processing.
package fx

import (
	"strings"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/shopspring/decimal"
)

// Converter abstracts the exchange-rate source so the static table below
// can be swapped for a live rate provider without touching dispatch logic.
type Converter interface {
	// ToUSD converts an amount in the given currency to USD.
	ToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, error)
}

// StaticConverter converts via a fixed rate table. The rates are
// placeholders, not authoritative; production deployments should back this
// interface with a real FX feed.
type StaticConverter struct {
	usdRates map[string]decimal.Decimal
}

// NewStaticConverter builds a converter with the built-in rate table.
func NewStaticConverter() *StaticConverter {
	return &StaticConverter{
		usdRates: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"UGX": decimal.RequireFromString("0.00027"),
			"KES": decimal.RequireFromString("0.0078"),
			"EUR": decimal.RequireFromString("1.08"),
		},
	}
}

// ToUSD converts amount to USD, erroring on currencies outside the table.
func (c *StaticConverter) ToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, ok := c.usdRates[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, domainerr.NewValidationError("unsupported currency " + currency)
	}
	return amount.Mul(rate), nil
}

// MinorUnits converts a decimal amount to the currency's minor unit
// (cents). UGX has no minor unit, so amounts are rounded to whole units.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if strings.ToUpper(currency) == "UGX" {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
