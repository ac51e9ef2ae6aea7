package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Transaction is a financial event. Once settled it is immutable except for
// the core fields a user may correct (amount, currency, client, type,
// is_debt); deletion is always soft and reverses the balance effect.
type Transaction struct {
	ID              int64
	Reference       uuid.UUID
	CompanyID       *int64
	ClientID        *int64
	CashRegisterID  *int64
	CurrencyID      int64
	Amount          decimal.Decimal
	Type            ledger.TransactionType
	IsDebt          bool
	Source          ledger.SourceRef
	ExchangeRate    *decimal.Decimal
	CashCurrencyID  *int64
	ClientBalanceID *int64
	Date            time.Time
	Note            *string
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Event maps the transaction onto the ledger-facing view.
func (t *Transaction) Event(skipBalance bool) ledger.TransactionEvent {
	return ledger.TransactionEvent{
		ID:              t.ID,
		ClientID:        t.ClientID,
		CompanyID:       t.CompanyID,
		CurrencyID:      t.CurrencyID,
		Amount:          t.Amount,
		Type:            t.Type,
		IsDebt:          t.IsDebt,
		Source:          t.Source,
		ExchangeRate:    t.ExchangeRate,
		CashCurrencyID:  t.CashCurrencyID,
		ClientBalanceID: t.ClientBalanceID,
		Date:            t.Date,
		SkipBalance:     skipBalance,
	}
}

// ClassifyDebt decides whether a transaction affects the client ledger.
// Payroll accruals and penalty leaves always create or reduce debt; every
// other source keeps the caller's choice.
func ClassifyDebt(source ledger.SourceRef, requested bool) bool {
	switch source.Kind {
	case ledger.SourceSalary, ledger.SourceLeave:
		return true
	default:
		return requested
	}
}
