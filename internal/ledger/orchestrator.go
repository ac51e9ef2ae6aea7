package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/meridian-erp/meridian-erp/internal/clients"
	"github.com/meridian-erp/meridian-erp/internal/fx"
	"github.com/meridian-erp/meridian-erp/internal/projects"
)

// CacheInvalidator signals read caches that an entity group changed.
// Implementations must never fail the write path.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, entities ...string)
}

// BalanceService reacts to the transaction lifecycle and keeps client
// balances in step. All three entry points silently no-op when the client
// ledger does not apply: explicit skip requests, order transactions that
// settle through a project ledger, missing clients or currencies, and
// non-debt (cash settled) transactions.
type BalanceService struct {
	balances    *ClientBalanceService
	repo        Repository
	clients     clients.Repository
	currencies  fx.Repository
	orders      projects.OrderResolver
	invalidator CacheInvalidator
	logger      *slog.Logger
	metrics     *Metrics
}

func NewBalanceService(
	balances *ClientBalanceService,
	repo Repository,
	clientRepo clients.Repository,
	currencies fx.Repository,
	orders projects.OrderResolver,
	invalidator CacheInvalidator,
	logger *slog.Logger,
	metrics *Metrics,
) *BalanceService {
	return &BalanceService{
		balances:    balances,
		repo:        repo,
		clients:     clientRepo,
		currencies:  currencies,
		orders:      orders,
		invalidator: invalidator,
		logger:      logger,
		metrics:     metrics,
	}
}

type resolvedEvent struct {
	client   *clients.Client
	currency *fx.Currency
	cash     *fx.Currency
}

// resolve checks the shared skip conditions and loads the collaborators the
// mutation needs. A nil result with nil error means "skip".
func (s *BalanceService) resolve(ctx context.Context, ev TransactionEvent) (*resolvedEvent, error) {
	if ev.SkipBalance {
		return nil, nil
	}
	if ev.Source.Kind == SourceOrder && s.orders != nil {
		projectID, err := s.orders.OrderProjectID(ctx, ev.Source.ID)
		if err != nil {
			return nil, err
		}
		if projectID != nil {
			return nil, nil
		}
	}
	if ev.ClientID == nil {
		return nil, nil
	}

	client, err := s.clients.Get(ctx, *ev.ClientID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	currency, err := s.currencies.Get(ctx, ev.CurrencyID)
	if err != nil {
		if errors.Is(err, fx.ErrCurrencyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var cash *fx.Currency
	if ev.CashCurrencyID != nil {
		cash, err = s.currencies.Get(ctx, *ev.CashCurrencyID)
		if err != nil {
			return nil, err
		}
	}

	return &resolvedEvent{client: client, currency: currency, cash: cash}, nil
}

func (s *BalanceService) update(ev TransactionEvent, res *resolvedEvent) BalanceUpdate {
	return BalanceUpdate{
		Client:       res.client,
		Currency:     res.currency,
		Amount:       ev.Amount,
		Type:         ev.Type,
		IsDebt:       ev.IsDebt,
		CompanyID:    ev.CompanyID,
		Date:         ev.Date,
		ExchangeRate: ev.ExchangeRate,
		CashCurrency: res.cash,
	}
}

// OnTransactionCreated applies a freshly persisted transaction to the client
// ledger. Returns the id of the balance row that absorbed the effect so the
// caller can stamp it onto the transaction; a transaction that already
// carries a stamp is left alone (the effect was applied by a more specific
// caller).
func (s *BalanceService) OnTransactionCreated(ctx context.Context, ev TransactionEvent) (*int64, error) {
	if !ev.IsDebt {
		return nil, nil
	}
	res, err := s.resolve(ctx, ev)
	if err != nil || res == nil {
		return nil, err
	}
	if ev.ClientBalanceID != nil {
		return ev.ClientBalanceID, nil
	}

	balanceID, err := s.balances.UpdateBalance(ctx, s.update(ev, res))
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return balanceID, nil
}

// OnTransactionUpdated reverses the transaction's previous effect and applies
// the current one. Reversal and re-application are two full UpdateBalance
// passes rather than one net delta: old and new states may disagree on
// currency or rate, and each pass re-derives its own conversion and rounding.
func (s *BalanceService) OnTransactionUpdated(ctx context.Context, ev TransactionEvent, original TransactionEvent) (*int64, error) {
	res, err := s.resolve(ctx, ev)
	if err != nil || res == nil {
		return nil, err
	}

	var balanceID *int64
	err = s.repo.WithUnit(ctx, func(ctx context.Context) error {
		clientChanged := original.ClientID != nil && ev.ClientID != nil && *original.ClientID != *ev.ClientID

		if original.ClientID != nil && original.IsDebt {
			reversal := original
			reversal.Amount = original.Amount.Neg()
			if clientChanged {
				oldRes, err := s.resolve(ctx, reversal)
				if err != nil {
					return err
				}
				if oldRes != nil {
					if _, err := s.balances.UpdateBalance(ctx, s.update(reversal, oldRes)); err != nil {
						return err
					}
				}
			} else {
				// Same client: undo the old amount against its old
				// currency and rate context, via the current client.
				oldUpd := s.update(reversal, res)
				oldCurrency, err := s.currencies.Get(ctx, original.CurrencyID)
				if err != nil {
					if !errors.Is(err, fx.ErrCurrencyNotFound) {
						return err
					}
				} else {
					oldUpd.Currency = oldCurrency
					if original.CashCurrencyID != nil {
						cash, err := s.currencies.Get(ctx, *original.CashCurrencyID)
						if err != nil {
							return err
						}
						oldUpd.CashCurrency = cash
					} else {
						oldUpd.CashCurrency = nil
					}
					oldUpd.ExchangeRate = original.ExchangeRate
					if _, err := s.balances.UpdateBalance(ctx, oldUpd); err != nil {
						return err
					}
				}
			}
		}

		if ev.IsDebt {
			id, err := s.balances.UpdateBalance(ctx, s.update(ev, res))
			if err != nil {
				return err
			}
			balanceID = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return balanceID, nil
}

// OnTransactionDeleted reverses a soft-deleted transaction's balance effect.
// When the transaction was stamped with its balance row the reversal locks
// that exact row instead of re-running balance resolution; a row that no
// longer belongs to the transaction's client is skipped with a warning.
func (s *BalanceService) OnTransactionDeleted(ctx context.Context, ev TransactionEvent) error {
	if !ev.IsDebt {
		return nil
	}
	res, err := s.resolve(ctx, ev)
	if err != nil || res == nil {
		return err
	}

	if ev.ClientBalanceID == nil {
		// Legacy rows without a stamp fall back to full resolution.
		reversal := s.update(ev, res)
		reversal.Amount = reversal.Amount.Neg()
		if _, err := s.balances.UpdateBalance(ctx, reversal); err != nil {
			return err
		}
		s.invalidate(ctx)
		return nil
	}

	err = s.repo.WithUnit(ctx, func(ctx context.Context) error {
		balance, err := s.repo.GetBalanceByIDForUpdate(ctx, *ev.ClientBalanceID)
		if err != nil {
			if errors.Is(err, ErrBalanceNotFound) {
				s.warnOwnership(ev, "stamped balance row missing")
				return nil
			}
			return err
		}
		if balance.ClientID != res.client.ID {
			s.warnOwnership(ev, "stamped balance row belongs to another client")
			return nil
		}

		amount := ev.Amount
		if balance.CurrencyID != ev.CurrencyID {
			target, err := s.currencies.Get(ctx, balance.CurrencyID)
			if err != nil {
				if errors.Is(err, fx.ErrCurrencyNotFound) {
					return ErrDefaultBalanceCurrencyMissing
				}
				return err
			}
			amount, err = s.balances.convertForBalance(ctx, s.update(ev, res), target)
			if err != nil {
				return err
			}
		}

		delta := CalculateBalanceDelta(amount, ev.Type, ev.IsDebt).Neg()
		return s.balances.increment(ctx, balance.ID, delta)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *BalanceService) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, "clients", "balances", "projects")
	}
}

func (s *BalanceService) warnOwnership(ev TransactionEvent, msg string) {
	if s.logger != nil {
		s.logger.Warn(msg,
			slog.Int64("transaction_id", ev.ID),
			slog.Any("client_balance_id", ev.ClientBalanceID))
	}
	if s.metrics != nil {
		s.metrics.OwnershipMismatches.Inc()
	}
}
