package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateBalanceDelta(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		txType TransactionType
		isDebt bool
		want   string
	}{
		{"debt income grows the debt", "100", TypeIncome, true, "100"},
		{"debt expense shrinks the debt", "100", TypeExpense, true, "-100"},
		{"cash expense counts positive", "100", TypeExpense, false, "100"},
		{"cash income counts negative", "100", TypeIncome, false, "-100"},
		{"zero amount is neutral", "0", TypeIncome, true, "0"},
		{"zero amount is neutral for expenses", "0", TypeExpense, false, "0"},
		{"negative amounts flip with the rule", "-25.50", TypeIncome, true, "-25.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBalanceDelta(decimal.RequireFromString(tt.amount), tt.txType, tt.isDebt)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestSourceRefIsZero(t *testing.T) {
	assert.True(t, SourceRef{}.IsZero())
	assert.True(t, SourceRef{Kind: SourceSale}.IsZero())
	assert.True(t, SourceRef{ID: 5}.IsZero())
	assert.False(t, SourceRef{Kind: SourceOrder, ID: 5}.IsZero())
}
