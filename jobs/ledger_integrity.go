package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// IntegrityScanner recomputes client balances from their stamped transactions
// and reports rows that drifted. Only same-currency transactions participate:
// converted amounts depend on rates at write time and cannot be re-derived.
type IntegrityScanner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewIntegrityScanner(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityScanner {
	return &IntegrityScanner{pool: pool, logger: logger}
}

// HandleTask processes TaskLedgerIntegrityScan tasks.
func (s *IntegrityScanner) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	drifted, err := s.Scan(ctx, payload.ClientID)
	if err != nil {
		return err
	}
	s.logger.Info("ledger integrity scan finished",
		slog.Int("drifted_balances", drifted))
	return nil
}

const integrityQuery = `
SELECT b.id, b.client_id, b.balance,
       COALESCE(SUM(CASE WHEN t.type = 1 THEN t.orig_amount ELSE -t.orig_amount END), 0) AS derived
FROM client_balances b
LEFT JOIN transactions t
  ON t.client_balance_id = b.id
 AND t.deleted_at IS NULL
 AND t.is_debt
 AND t.currency_id = b.currency_id
WHERE ($1::bigint IS NULL OR b.client_id = $1)
  AND NOT EXISTS (
    SELECT 1 FROM transactions x
    WHERE x.client_balance_id = b.id
      AND x.deleted_at IS NULL
      AND x.currency_id <> b.currency_id
  )
GROUP BY b.id, b.client_id, b.balance`

// Scan returns the number of balance rows whose stored value no longer
// matches the sum of their stamped transactions.
func (s *IntegrityScanner) Scan(ctx context.Context, clientID *int64) (int, error) {
	rows, err := s.pool.Query(ctx, integrityQuery, clientID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	drifted := 0
	for rows.Next() {
		var balanceID, owner int64
		var stored, derived decimal.Decimal
		if err := rows.Scan(&balanceID, &owner, &stored, &derived); err != nil {
			return drifted, err
		}
		if !stored.Equal(derived) {
			drifted++
			s.logger.Warn("client balance drift",
				slog.Int64("balance_id", balanceID),
				slog.Int64("client_id", owner),
				slog.String("stored", stored.String()),
				slog.String("derived", derived.String()))
		}
	}
	return drifted, rows.Err()
}
