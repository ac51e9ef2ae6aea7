package clients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

var ErrNotFound = errors.New("record not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*Client, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Client, error) {
	var c Client
	err := db.From(ctx, r.pool).QueryRow(ctx, `SELECT id, name, type, status, discount_percent, company_id, created_at, updated_at
FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.DiscountPercent, &c.CompanyID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
