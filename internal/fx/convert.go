package fx

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Converter converts monetary amounts between currencies through the shared
// default-currency pivot.
type Converter struct{}

// NewConverter constructs a converter instance.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert converts amount from one currency to another.
//
// Both exchange rates are expressed against the same pivot, so the pivot
// cancels algebraically: amount / from.ExchangeRate * to.ExchangeRate. The
// defaultCurrency argument is not read by the formula.
func (c *Converter) Convert(amount decimal.Decimal, from, to, defaultCurrency *Currency) (decimal.Decimal, error) {
	if from == nil || to == nil {
		return decimal.Zero, ErrCurrencyNotFound
	}
	if from.ID == to.ID {
		return amount, nil
	}
	if !from.ExchangeRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidRate, from.Code)
	}
	if !to.ExchangeRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidRate, to.Code)
	}
	return amount.Div(from.ExchangeRate).Mul(to.ExchangeRate), nil
}
