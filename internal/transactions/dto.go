package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateTransactionRequest struct {
	Reference         *uuid.UUID       `json:"reference,omitempty"`
	CompanyID         *int64           `json:"company_id,omitempty" validate:"omitempty,gt=0"`
	ClientID          *int64           `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	CashRegisterID    *int64           `json:"cash_register_id,omitempty" validate:"omitempty,gt=0"`
	CurrencyID        int64            `json:"currency_id" validate:"required,gt=0"`
	Amount            decimal.Decimal  `json:"amount"`
	Type              int              `json:"type" validate:"oneof=0 1"`
	IsDebt            bool             `json:"is_debt"`
	SourceKind        string           `json:"source_kind,omitempty" validate:"omitempty,oneof=SALE ORDER SALARY RECEIPT LEAVE"`
	SourceID          int64            `json:"source_id,omitempty" validate:"gte=0"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate,omitempty"`
	CashCurrencyID    *int64           `json:"cash_currency_id,omitempty" validate:"omitempty,gt=0"`
	Date              *time.Time       `json:"date,omitempty"`
	Note              *string          `json:"note,omitempty" validate:"omitempty,max=500"`
	SkipBalanceUpdate bool             `json:"skip_balance_update,omitempty"`
}

type UpdateTransactionRequest struct {
	CompanyID         *int64           `json:"company_id,omitempty" validate:"omitempty,gt=0"`
	ClientID          *int64           `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	CashRegisterID    *int64           `json:"cash_register_id,omitempty" validate:"omitempty,gt=0"`
	CurrencyID        *int64           `json:"currency_id,omitempty" validate:"omitempty,gt=0"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Type              *int             `json:"type,omitempty" validate:"omitempty,oneof=0 1"`
	IsDebt            *bool            `json:"is_debt,omitempty"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate,omitempty"`
	CashCurrencyID    *int64           `json:"cash_currency_id,omitempty" validate:"omitempty,gt=0"`
	Date              *time.Time       `json:"date,omitempty"`
	Note              *string          `json:"note,omitempty" validate:"omitempty,max=500"`
	SkipBalanceUpdate bool             `json:"skip_balance_update,omitempty"`
}
