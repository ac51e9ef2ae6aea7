package fx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository provides read access to currency configuration. Rates are
// maintained elsewhere; this subsystem only reads them.
type Repository interface {
	Get(ctx context.Context, id int64) (*Currency, error)
	GetByCode(ctx context.Context, code string) (*Currency, error)
	GetDefault(ctx context.Context) (*Currency, error)
	List(ctx context.Context) ([]Currency, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const currencyColumns = `id, code, symbol, exchange_rate, is_default, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Currency, error) {
	row := db.From(ctx, r.pool).QueryRow(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE id = $1`, id)
	return scanCurrency(row)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Currency, error) {
	row := db.From(ctx, r.pool).QueryRow(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE code = $1`, code)
	return scanCurrency(row)
}

func (r *repository) GetDefault(ctx context.Context) (*Currency, error) {
	row := db.From(ctx, r.pool).QueryRow(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE is_default = TRUE LIMIT 1`)
	cur, err := scanCurrency(row)
	if errors.Is(err, ErrCurrencyNotFound) {
		return nil, ErrDefaultCurrencyNotConfigured
	}
	return cur, err
}

func (r *repository) List(ctx context.Context) ([]Currency, error) {
	rows, err := db.From(ctx, r.pool).Query(ctx, `SELECT `+currencyColumns+` FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Symbol, &c.ExchangeRate, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCurrency(row pgx.Row) (*Currency, error) {
	var c Currency
	err := row.Scan(&c.ID, &c.Code, &c.Symbol, &c.ExchangeRate, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCurrencyNotFound
		}
		return nil, err
	}
	return &c, nil
}
