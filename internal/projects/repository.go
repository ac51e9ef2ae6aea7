// Package projects provides the minimal project lookup the ledger needs:
// orders linked to a project settle through the project ledger, so their
// transactions never touch client balances.
package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// OrderResolver reports the project an order belongs to, if any.
type OrderResolver interface {
	OrderProjectID(ctx context.Context, orderID int64) (*int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewOrderResolver(pool *pgxpool.Pool) OrderResolver {
	return &repository{pool: pool}
}

func (r *repository) OrderProjectID(ctx context.Context, orderID int64) (*int64, error) {
	var projectID *int64
	err := db.From(ctx, r.pool).QueryRow(ctx, `SELECT project_id FROM orders WHERE id = $1`, orderID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return projectID, nil
}
