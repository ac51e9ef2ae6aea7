package fx

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is a tradeable currency. ExchangeRate is expressed relative to the
// single system-wide default currency (the pivot).
type Currency struct {
	ID           int64
	Code         string
	Symbol       string
	ExchangeRate decimal.Decimal
	IsDefault    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidCode reports whether code is a well-formed ISO 4217 currency code.
func ValidCode(code string) bool {
	_, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	return err == nil
}
