package cashregisters

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

var ErrNotFound = errors.New("record not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*CashRegister, error)
	// GetForUpdate locks the register row; must run inside an ambient unit.
	GetForUpdate(ctx context.Context, id int64) (*CashRegister, error)
	IncrementBalance(ctx context.Context, id int64, delta decimal.Decimal) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const registerColumns = `id, name, company_id, currency_id, balance, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*CashRegister, error) {
	return r.scanOne(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+registerColumns+` FROM cash_registers WHERE id = $1`, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*CashRegister, error) {
	return r.scanOne(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+registerColumns+` FROM cash_registers WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) IncrementBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	cmd, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE cash_registers SET balance = balance + $2, updated_at = NOW() WHERE id = $1`, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) scanOne(row pgx.Row) (*CashRegister, error) {
	var c CashRegister
	err := row.Scan(&c.ID, &c.Name, &c.CompanyID, &c.CurrencyID, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
