package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type ListTransactionsRequest struct {
	CompanyID *int64
	ClientID  *int64
	Limit     int
	Offset    int
}

type Repository interface {
	WithUnit(ctx context.Context, fn func(context.Context) error) error
	Get(ctx context.Context, id int64) (*Transaction, error)
	GetForUpdate(ctx context.Context, id int64) (*Transaction, error)
	List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error)
	Insert(ctx context.Context, t Transaction) (int64, error)
	Update(ctx context.Context, t Transaction) error
	StampBalance(ctx context.Context, id, balanceID int64) error
	SoftDelete(ctx context.Context, id int64) error
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

const transactionColumns = `id, reference, company_id, client_id, cash_register_id, currency_id, orig_amount,
type, is_debt, source_kind, source_id, exchange_rate, cash_currency_id, client_balance_id,
date, note, created_by, created_at, updated_at, deleted_at`

func (r *repository) Get(ctx context.Context, id int64) (*Transaction, error) {
	row := db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanTransaction(row)
}

// GetForUpdate locks the row for the rest of the unit, so edits see the state
// the previous writer committed rather than a stale snapshot.
func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Transaction, error) {
	row := db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	return scanTransaction(row)
}

func (r *repository) List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error) {
	conditions := "deleted_at IS NULL"
	args := []interface{}{}
	argPos := 1

	if req.CompanyID != nil {
		conditions += fmt.Sprintf(" AND company_id = $%d", argPos)
		args = append(args, *req.CompanyID)
		argPos++
	}
	if req.ClientID != nil {
		conditions += fmt.Sprintf(" AND client_id = $%d", argPos)
		args = append(args, *req.ClientID)
		argPos++
	}

	var total int
	if err := db.From(ctx, r.pool).QueryRow(ctx,
		"SELECT COUNT(*) FROM transactions WHERE "+conditions, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d",
		transactionColumns, conditions, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := db.From(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *repository) Insert(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := db.From(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO transactions (reference, company_id, client_id, cash_register_id, currency_id, orig_amount,
type, is_debt, source_kind, source_id, exchange_rate, cash_currency_id, date, note, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15) RETURNING id`,
		t.Reference, t.CompanyID, t.ClientID, t.CashRegisterID, t.CurrencyID, t.Amount,
		int(t.Type), t.IsDebt, string(t.Source.Kind), nullSourceID(t.Source), t.ExchangeRate,
		t.CashCurrencyID, t.Date, t.Note, t.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_transactions_reference" {
			return 0, fmt.Errorf("%w: reference %s", ErrAlreadyExists, t.Reference)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, t Transaction) error {
	cmd, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE transactions SET company_id=$2, client_id=$3, cash_register_id=$4, currency_id=$5, orig_amount=$6,
type=$7, is_debt=$8, exchange_rate=$9, cash_currency_id=$10, date=$11, note=$12, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL`,
		t.ID, t.CompanyID, t.ClientID, t.CashRegisterID, t.CurrencyID, t.Amount,
		int(t.Type), t.IsDebt, t.ExchangeRate, t.CashCurrencyID, t.Date, t.Note)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) StampBalance(ctx context.Context, id, balanceID int64) error {
	cmd, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE transactions SET client_balance_id=$2, updated_at=NOW() WHERE id=$1`, id, balanceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	cmd, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE transactions SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	t, err := scanTransactionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func scanTransactionRow(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var txType int
	var sourceKind string
	var sourceID *int64
	err := row.Scan(&t.ID, &t.Reference, &t.CompanyID, &t.ClientID, &t.CashRegisterID, &t.CurrencyID, &t.Amount,
		&txType, &t.IsDebt, &sourceKind, &sourceID, &t.ExchangeRate, &t.CashCurrencyID, &t.ClientBalanceID,
		&t.Date, &t.Note, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return nil, err
	}
	t.Type = ledger.TransactionType(txType)
	t.Source = ledger.SourceRef{Kind: ledger.SourceKind(sourceKind)}
	if sourceID != nil {
		t.Source.ID = *sourceID
	}
	return &t, nil
}

func nullSourceID(s ledger.SourceRef) interface{} {
	if s.IsZero() {
		return nil
	}
	return s.ID
}
