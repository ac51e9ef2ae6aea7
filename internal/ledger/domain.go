package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a financial event from the ledger
// owner's point of view.
type TransactionType int

const (
	// TypeExpense is an outflow.
	TypeExpense TransactionType = 0
	// TypeIncome is an inflow.
	TypeIncome TransactionType = 1
)

// SourceKind enumerates the entities a transaction can originate from.
type SourceKind string

const (
	SourceNone    SourceKind = ""
	SourceSale    SourceKind = "SALE"
	SourceOrder   SourceKind = "ORDER"
	SourceSalary  SourceKind = "SALARY"
	SourceReceipt SourceKind = "RECEIPT"
	SourceLeave   SourceKind = "LEAVE"
)

// SourceRef points at the entity that originated a transaction.
type SourceRef struct {
	Kind SourceKind
	ID   int64
}

// IsZero reports whether the reference points at nothing (manual entry).
func (s SourceRef) IsZero() bool {
	return s.Kind == SourceNone || s.ID == 0
}

// ClientBalance is a signed running balance for one (client, currency) pair.
// At most one row per client carries IsDefault. Rows are mutated only through
// atomic increments under a row lock.
type ClientBalance struct {
	ID         int64
	ClientID   int64
	CurrencyID int64
	Balance    decimal.Decimal
	IsDefault  bool
	Note       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TransactionEvent is the ledger-facing view of a financial transaction. The
// transactions package maps its rows onto this before calling the balance
// lifecycle entry points.
type TransactionEvent struct {
	ID              int64
	ClientID        *int64
	CompanyID       *int64
	CurrencyID      int64
	Amount          decimal.Decimal
	Type            TransactionType
	IsDebt          bool
	Source          SourceRef
	ExchangeRate    *decimal.Decimal
	CashCurrencyID  *int64
	ClientBalanceID *int64
	Date            time.Time
	SkipBalance     bool
}

// CalculateBalanceDelta applies the debt-sign rule to a transaction amount.
//
// A debt income means the client owes us more (positive). A debt expense
// means the client's debt shrinks (negative). Non-debt transactions settle in
// cash registers and are skipped before reaching a client balance; the rule
// still covers them because the cash-register reversal reuses it.
func CalculateBalanceDelta(amount decimal.Decimal, txType TransactionType, isDebt bool) decimal.Decimal {
	if amount.IsZero() {
		return decimal.Zero
	}
	if (isDebt && txType == TypeIncome) || (!isDebt && txType == TypeExpense) {
		return amount
	}
	return amount.Neg()
}
