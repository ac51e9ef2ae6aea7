package companies

import "time"

// Company is a tenant. Rounding settings control how converted monetary
// amounts are truncated before landing on a client balance.
type Company struct {
	ID               int64
	Name             string
	RoundingEnabled  bool
	RoundingDecimals int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
