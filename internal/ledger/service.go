package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/clients"
	"github.com/meridian-erp/meridian-erp/internal/companies"
	"github.com/meridian-erp/meridian-erp/internal/fx"
)

// BalanceUpdate carries everything needed to settle one transaction amount
// into a client's balance.
type BalanceUpdate struct {
	Client       *clients.Client
	Currency     *fx.Currency
	Amount       decimal.Decimal
	Type         TransactionType
	IsDebt       bool
	CompanyID    *int64
	Date         time.Time
	ExchangeRate *decimal.Decimal
	CashCurrency *fx.Currency
}

// ClientBalanceService owns per-client, per-currency balance rows.
type ClientBalanceService struct {
	repo       Repository
	currencies fx.Repository
	converter  *fx.Converter
	rounding   *companies.RoundingService
	logger     *slog.Logger
	metrics    *Metrics
}

func NewClientBalanceService(
	repo Repository,
	currencies fx.Repository,
	converter *fx.Converter,
	rounding *companies.RoundingService,
	logger *slog.Logger,
	metrics *Metrics,
) *ClientBalanceService {
	return &ClientBalanceService{
		repo:       repo,
		currencies: currencies,
		converter:  converter,
		rounding:   rounding,
		logger:     logger,
		metrics:    metrics,
	}
}

// CreateBalance inserts a balance row for the client. A nil currency selects
// the system default currency and forces the default flag. Creating a default
// balance clears the flag on every other balance of the client first.
//
// Not self-transactional: the caller is responsible for running this inside
// an ambient unit.
func (s *ClientBalanceService) CreateBalance(ctx context.Context, clientID int64, currency *fx.Currency, isDefault bool, initial decimal.Decimal, note *string) (*ClientBalance, error) {
	if currency == nil {
		def, err := s.currencies.GetDefault(ctx)
		if err != nil {
			return nil, err
		}
		currency = def
		isDefault = true
	}
	if isDefault {
		if err := s.repo.LockClient(ctx, clientID); err != nil {
			return nil, err
		}
		if err := s.repo.ClearDefaultFlags(ctx, clientID, nil); err != nil {
			return nil, fmt.Errorf("clear default flags: %w", err)
		}
	}
	balance := ClientBalance{
		ClientID:   clientID,
		CurrencyID: currency.ID,
		Balance:    initial,
		IsDefault:  isDefault,
		Note:       note,
	}
	id, err := s.repo.CreateBalance(ctx, balance)
	if err != nil {
		return nil, fmt.Errorf("create balance: %w", err)
	}
	balance.ID = id
	return &balance, nil
}

// ClearDefaultFlags drops the default flag on all of a client's balances
// except the excluded one. Idempotent.
func (s *ClientBalanceService) ClearDefaultFlags(ctx context.Context, clientID int64, excludeID *int64) error {
	return s.repo.ClearDefaultFlags(ctx, clientID, excludeID)
}

// GetBalance returns the client's balance in the given currency, or the
// default-flagged balance when currency is nil.
func (s *ClientBalanceService) GetBalance(ctx context.Context, clientID int64, currency *fx.Currency) (*ClientBalance, error) {
	if currency == nil {
		return s.repo.GetDefaultBalance(ctx, clientID)
	}
	return s.repo.GetBalance(ctx, clientID, currency.ID)
}

// ListBalances returns every balance row of a client, default first.
func (s *ClientBalanceService) ListBalances(ctx context.Context, clientID int64) ([]ClientBalance, error) {
	return s.repo.ListBalances(ctx, clientID)
}

// UpdateBalance locates the balance row a transaction amount settles into,
// locks it, and applies the signed delta. Runs in its own unit unless the
// context already carries one; either way the row lock serializes concurrent
// writers to the same balance.
//
// Resolution order: the default-flagged balance in the transaction currency,
// the oldest balance in that currency, then the client's default-currency
// balance (created lazily), converting the amount when currencies differ.
// Returns the id of the row that absorbed the effect.
func (s *ClientBalanceService) UpdateBalance(ctx context.Context, upd BalanceUpdate) (*int64, error) {
	if upd.Client == nil || upd.Currency == nil {
		return nil, errors.New("ledger: client and currency are required")
	}

	var balanceID *int64
	err := s.repo.WithUnit(ctx, func(ctx context.Context) error {
		balance, err := s.repo.GetDefaultInCurrencyForUpdate(ctx, upd.Client.ID, upd.Currency.ID)
		if errors.Is(err, ErrBalanceNotFound) {
			balance, err = s.repo.GetOldestInCurrencyForUpdate(ctx, upd.Client.ID, upd.Currency.ID)
		}
		if err != nil && !errors.Is(err, ErrBalanceNotFound) {
			return err
		}

		if balance != nil {
			if err := s.increment(ctx, balance.ID, CalculateBalanceDelta(upd.Amount, upd.Type, upd.IsDebt)); err != nil {
				return err
			}
			balanceID = &balance.ID
			return nil
		}

		// Nothing in the transaction currency, so the default balance may
		// not exist yet. FOR UPDATE on zero rows locks nothing; serialize
		// first-contact writers on the client before resolving it, or two
		// of them could each insert a default row.
		if err := s.repo.LockClient(ctx, upd.Client.ID); err != nil {
			return err
		}

		defBalance, err := s.repo.GetDefaultBalanceForUpdate(ctx, upd.Client.ID)
		if errors.Is(err, ErrBalanceNotFound) {
			defBalance, err = s.CreateBalance(ctx, upd.Client.ID, nil, true, decimal.Zero, nil)
		}
		if err != nil {
			return err
		}

		target, err := s.currencies.Get(ctx, defBalance.CurrencyID)
		if err != nil {
			if errors.Is(err, fx.ErrCurrencyNotFound) {
				return ErrDefaultBalanceCurrencyMissing
			}
			return err
		}

		amount := upd.Amount
		if target.ID != upd.Currency.ID {
			amount, err = s.convertForBalance(ctx, upd, target)
			if err != nil {
				return err
			}
		}

		if err := s.increment(ctx, defBalance.ID, CalculateBalanceDelta(amount, upd.Type, upd.IsDebt)); err != nil {
			return err
		}
		balanceID = &defBalance.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balanceID, nil
}

func (s *ClientBalanceService) increment(ctx context.Context, balanceID int64, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	if err := s.repo.IncrementBalance(ctx, balanceID, delta); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BalanceMutations.Inc()
	}
	return nil
}

// convertForBalance expresses the transaction amount in the target balance
// currency. A manual exchange rate first multiplies the amount into the cash
// currency; the remainder goes through the converter. The converted amount is
// rounded with the company policy.
func (s *ClientBalanceService) convertForBalance(ctx context.Context, upd BalanceUpdate, target *fx.Currency) (decimal.Decimal, error) {
	var converted decimal.Decimal
	var err error

	if upd.ExchangeRate != nil && upd.CashCurrency != nil {
		inCash := upd.Amount.Mul(*upd.ExchangeRate)
		if upd.CashCurrency.ID == target.ID {
			converted = inCash
		} else {
			converted, err = s.converter.Convert(inCash, upd.CashCurrency, target, target)
		}
	} else {
		converted, err = s.converter.Convert(upd.Amount, upd.Currency, target, target)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Error("currency conversion failed",
				slog.Int64("client_id", upd.Client.ID),
				slog.String("from", upd.Currency.Code),
				slog.String("to", target.Code),
				slog.String("amount", upd.Amount.String()),
				slog.Any("error", err))
		}
		if s.metrics != nil {
			s.metrics.ConversionFailures.Inc()
		}
		return decimal.Zero, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	return s.rounding.RoundForCompany(ctx, upd.CompanyID, converted)
}
