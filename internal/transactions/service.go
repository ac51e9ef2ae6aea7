package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/cashregisters"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// BalanceLifecycle is the client-ledger side of the transaction lifecycle,
// implemented by ledger.BalanceService.
type BalanceLifecycle interface {
	OnTransactionCreated(ctx context.Context, ev ledger.TransactionEvent) (*int64, error)
	OnTransactionUpdated(ctx context.Context, ev, original ledger.TransactionEvent) (*int64, error)
	OnTransactionDeleted(ctx context.Context, ev ledger.TransactionEvent) error
}

// Service owns the transaction lifecycle. Every write runs inside one unit
// covering the row itself, the client ledger effect, and the cash-register
// effect, so a failure in any of them rolls the whole operation back.
type Service struct {
	repo      Repository
	balance   BalanceLifecycle
	registers cashregisters.Repository
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, balance BalanceLifecycle, registers cashregisters.Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		balance:   balance,
		registers: registers,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error) {
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Create persists a transaction and applies its ledger effects.
func (s *Service) Create(ctx context.Context, req CreateTransactionRequest, createdBy int64) (*Transaction, error) {
	t := Transaction{
		Reference:      uuid.New(),
		CompanyID:      req.CompanyID,
		ClientID:       req.ClientID,
		CashRegisterID: req.CashRegisterID,
		CurrencyID:     req.CurrencyID,
		Amount:         req.Amount,
		Type:           ledger.TransactionType(req.Type),
		Source:         ledger.SourceRef{Kind: ledger.SourceKind(req.SourceKind), ID: req.SourceID},
		ExchangeRate:   req.ExchangeRate,
		CashCurrencyID: req.CashCurrencyID,
		Note:           req.Note,
		CreatedBy:      createdBy,
	}
	if req.Reference != nil {
		t.Reference = *req.Reference
	}
	t.IsDebt = ClassifyDebt(t.Source, req.IsDebt)
	t.Date = s.now()
	if req.Date != nil {
		t.Date = *req.Date
	}

	err := s.repo.WithUnit(ctx, func(ctx context.Context) error {
		id, err := s.repo.Insert(ctx, t)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		t.ID = id

		if err := s.applyRegisterEffect(ctx, &t, false); err != nil {
			return err
		}

		balanceID, err := s.balance.OnTransactionCreated(ctx, t.Event(req.SkipBalanceUpdate))
		if err != nil {
			return err
		}
		if balanceID != nil {
			if err := s.repo.StampBalance(ctx, t.ID, *balanceID); err != nil {
				return fmt.Errorf("stamp balance: %w", err)
			}
			t.ClientBalanceID = balanceID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update edits a transaction's core fields and re-syncs both ledgers by
// reversing the old effect and applying the new one.
func (s *Service) Update(ctx context.Context, id int64, req UpdateTransactionRequest) (*Transaction, error) {
	var updated Transaction
	err := s.repo.WithUnit(ctx, func(ctx context.Context) error {
		// Snapshot the row under its lock. Read outside the unit, two
		// concurrent edits could both reverse the same stale original.
		original, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		updated = *original
		applyUpdates(&updated, req)
		updated.IsDebt = ClassifyDebt(updated.Source, updated.IsDebt)

		if err := s.repo.Update(ctx, updated); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		if err := s.reverseRegisterEffect(ctx, original); err != nil {
			return err
		}
		if err := s.applyRegisterEffect(ctx, &updated, false); err != nil {
			return err
		}

		balanceID, err := s.balance.OnTransactionUpdated(ctx, updated.Event(req.SkipBalanceUpdate), original.Event(false))
		if err != nil {
			return err
		}
		if balanceID != nil {
			if err := s.repo.StampBalance(ctx, updated.ID, *balanceID); err != nil {
				return fmt.Errorf("stamp balance: %w", err)
			}
			updated.ClientBalanceID = balanceID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete soft-deletes a transaction, reversing its client ledger effect and
// its cash-register effect.
func (s *Service) Delete(ctx context.Context, id int64, skipBalanceUpdate bool) error {
	return s.repo.WithUnit(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := s.repo.SoftDelete(ctx, t.ID); err != nil {
			return fmt.Errorf("soft delete transaction: %w", err)
		}

		if err := s.reverseRegisterEffect(ctx, t); err != nil {
			return err
		}

		return s.balance.OnTransactionDeleted(ctx, t.Event(skipBalanceUpdate))
	})
}

// registerDelta is the cash-register effect of a settled (non-debt)
// transaction: income adds cash, expense removes it.
func registerDelta(t *Transaction) decimal.Decimal {
	if t.Type == ledger.TypeIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (s *Service) applyRegisterEffect(ctx context.Context, t *Transaction, reverse bool) error {
	if t.IsDebt || t.CashRegisterID == nil || t.Amount.IsZero() {
		return nil
	}
	if _, err := s.registers.GetForUpdate(ctx, *t.CashRegisterID); err != nil {
		return fmt.Errorf("lock cash register: %w", err)
	}
	delta := registerDelta(t)
	if reverse {
		delta = delta.Neg()
	}
	if err := s.registers.IncrementBalance(ctx, *t.CashRegisterID, delta); err != nil {
		return fmt.Errorf("increment cash register: %w", err)
	}
	return nil
}

func (s *Service) reverseRegisterEffect(ctx context.Context, t *Transaction) error {
	return s.applyRegisterEffect(ctx, t, true)
}

func applyUpdates(t *Transaction, req UpdateTransactionRequest) {
	if req.CompanyID != nil {
		t.CompanyID = req.CompanyID
	}
	if req.ClientID != nil {
		t.ClientID = req.ClientID
	}
	if req.CashRegisterID != nil {
		t.CashRegisterID = req.CashRegisterID
	}
	if req.CurrencyID != nil {
		t.CurrencyID = *req.CurrencyID
	}
	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if req.Type != nil {
		t.Type = ledger.TransactionType(*req.Type)
	}
	if req.IsDebt != nil {
		t.IsDebt = *req.IsDebt
	}
	if req.ExchangeRate != nil {
		t.ExchangeRate = req.ExchangeRate
	}
	if req.CashCurrencyID != nil {
		t.CashCurrencyID = req.CashCurrencyID
	}
	if req.Date != nil {
		t.Date = *req.Date
	}
	if req.Note != nil {
		t.Note = req.Note
	}
}
