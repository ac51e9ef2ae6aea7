package cashregisters

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashRegister holds settled cash in a single currency. Its balance is a
// separate ledger from client balances: non-debt transactions move money here
// at settlement time and never touch the client ledger.
type CashRegister struct {
	ID         int64
	Name       string
	CompanyID  int64
	CurrencyID int64
	Balance    decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
