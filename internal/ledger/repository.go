package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository owns client_balances rows. The ForUpdate variants acquire row
// locks and must run inside a unit started with WithUnit (or an ambient one).
type Repository interface {
	WithUnit(ctx context.Context, fn func(context.Context) error) error

	GetBalance(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error)
	GetDefaultBalance(ctx context.Context, clientID int64) (*ClientBalance, error)
	ListBalances(ctx context.Context, clientID int64) ([]ClientBalance, error)

	GetDefaultInCurrencyForUpdate(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error)
	GetOldestInCurrencyForUpdate(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error)
	GetDefaultBalanceForUpdate(ctx context.Context, clientID int64) (*ClientBalance, error)
	GetBalanceByIDForUpdate(ctx context.Context, id int64) (*ClientBalance, error)

	CreateBalance(ctx context.Context, balance ClientBalance) (int64, error)
	IncrementBalance(ctx context.Context, id int64, delta decimal.Decimal) error
	ClearDefaultFlags(ctx context.Context, clientID int64, excludeID *int64) error

	// LockClient takes a per-client advisory lock held until the enclosing
	// unit commits. Serializes writers that may insert balance rows, where
	// FOR UPDATE has nothing to lock yet.
	LockClient(ctx context.Context, clientID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithUnit(ctx context.Context, fn func(context.Context) error) error {
	return db.WithUnit(ctx, r.pool, fn)
}

const balanceColumns = `id, client_id, currency_id, balance, is_default, note, created_at, updated_at`

func (r *repository) GetBalance(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error) {
	return scanBalance(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM client_balances WHERE client_id = $1 AND currency_id = $2 ORDER BY id ASC LIMIT 1`,
		clientID, currencyID))
}

func (r *repository) GetDefaultBalance(ctx context.Context, clientID int64) (*ClientBalance, error) {
	return scanBalance(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM client_balances WHERE client_id = $1 AND is_default = TRUE LIMIT 1`,
		clientID))
}

func (r *repository) ListBalances(ctx context.Context, clientID int64) ([]ClientBalance, error) {
	rows, err := db.From(ctx, r.pool).Query(ctx,
		`SELECT `+balanceColumns+` FROM client_balances WHERE client_id = $1 ORDER BY is_default DESC, id ASC`,
		clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClientBalance
	for rows.Next() {
		var b ClientBalance
		if err := rows.Scan(&b.ID, &b.ClientID, &b.CurrencyID, &b.Balance, &b.IsDefault, &b.Note, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) GetDefaultInCurrencyForUpdate(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error) {
	return scanBalance(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM client_balances WHERE client_id = $1 AND currency_id = $2 AND is_default = TRUE LIMIT 1 FOR UPDATE`,
		clientID, currencyID))
}

func (r *repository) GetOldestInCurrencyForUpdate(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error) {
	return scanBalance(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM client_balances WHERE client_id = $1 AND currency_id = $2 ORDER BY id ASC LIMIT 1 FOR UPDATE`,
		clientID, currencyID))
}

func (r *repository) GetDefaultBalanceForUpdate(ctx context.Context, clientID int64) (*ClientBalance, error) {
	return scanBalance(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM client_balances WHERE client_id = $1 AND is_default = TRUE LIMIT 1 FOR UPDATE`,
		clientID))
}

func (r *repository) GetBalanceByIDForUpdate(ctx context.Context, id int64) (*ClientBalance, error) {
	return scanBalance(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM client_balances WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) CreateBalance(ctx context.Context, balance ClientBalance) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO client_balances (client_id, currency_id, balance, is_default, note)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		balance.ClientID, balance.CurrencyID, balance.Balance, balance.IsDefault, balance.Note).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) IncrementBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	cmd, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE client_balances SET balance = balance + $2, updated_at = NOW() WHERE id = $1`, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBalanceNotFound
	}
	return nil
}

func (r *repository) ClearDefaultFlags(ctx context.Context, clientID int64, excludeID *int64) error {
	if excludeID != nil {
		_, err := db.From(ctx, r.pool).Exec(ctx,
			`UPDATE client_balances SET is_default = FALSE, updated_at = NOW() WHERE client_id = $1 AND is_default = TRUE AND id <> $2`,
			clientID, *excludeID)
		return err
	}
	_, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE client_balances SET is_default = FALSE, updated_at = NOW() WHERE client_id = $1 AND is_default = TRUE`,
		clientID)
	return err
}

func (r *repository) LockClient(ctx context.Context, clientID int64) error {
	_, err := db.From(ctx, r.pool).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended('client_balances:' || $1::text, 0))`, clientID)
	return err
}

func scanBalance(row pgx.Row) (*ClientBalance, error) {
	var b ClientBalance
	err := row.Scan(&b.ID, &b.ClientID, &b.CurrencyID, &b.Balance, &b.IsDefault, &b.Note, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &b, nil
}
