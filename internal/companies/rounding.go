package companies

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// DefaultRoundingDecimals applies when a company has no explicit setting.
	DefaultRoundingDecimals = 2
	maxRoundingDecimals     = 5
)

// RoundingService applies a company-configured decimal precision to monetary
// amounts. Unknown companies and disabled policies leave values untouched.
type RoundingService struct {
	repo Repository
}

func NewRoundingService(repo Repository) *RoundingService {
	return &RoundingService{repo: repo}
}

// RoundForCompany rounds value using half-away-from-zero at the company's
// configured precision. A nil company id or a disabled policy returns the
// value unchanged.
func (s *RoundingService) RoundForCompany(ctx context.Context, companyID *int64, value decimal.Decimal) (decimal.Decimal, error) {
	if companyID == nil {
		return value, nil
	}
	company, err := s.repo.Get(ctx, *companyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return value, nil
		}
		return decimal.Zero, err
	}
	if !company.RoundingEnabled {
		return value, nil
	}
	return value.Round(int32(clampDecimals(company.RoundingDecimals))), nil
}

// DecimalsForCompany returns the configured precision, defaulting to 2.
func (s *RoundingService) DecimalsForCompany(ctx context.Context, companyID *int64) (int, error) {
	if companyID == nil {
		return DefaultRoundingDecimals, nil
	}
	company, err := s.repo.Get(ctx, *companyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DefaultRoundingDecimals, nil
		}
		return 0, err
	}
	if !company.RoundingEnabled {
		return DefaultRoundingDecimals, nil
	}
	return clampDecimals(company.RoundingDecimals), nil
}

func clampDecimals(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxRoundingDecimals {
		return maxRoundingDecimals
	}
	return n
}
