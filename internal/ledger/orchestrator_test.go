package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnTransactionCreatedSkipsNonDebt(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "0", true)

	ev := debtIncome(1, usdID, "100")
	ev.IsDebt = false

	got, err := f.service.OnTransactionCreated(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, f.balanceOf(t, defaultID).IsZero())
	assert.Empty(t, f.invalidator.calls)
}

func TestOnTransactionCreatedAppliesDebtIncome(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "0", true)

	got, err := f.service.OnTransactionCreated(context.Background(), debtIncome(1, usdID, "100"))
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, defaultID, *got)
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(100)))
	require.Len(t, f.invalidator.calls, 1)
	assert.Contains(t, f.invalidator.calls[0], "balances")
}

func TestOnTransactionCreatedRespectsExistingStamp(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "0", true)

	ev := debtIncome(1, usdID, "100")
	ev.ClientBalanceID = &defaultID

	got, err := f.service.OnTransactionCreated(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, defaultID, *got)
	assert.True(t, f.balanceOf(t, defaultID).IsZero(), "stamped events must not re-apply")
}

func TestOnTransactionCreatedSkipsOrderWithProject(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "0", true)
	f.orders.projects[77] = 5

	ev := debtIncome(1, usdID, "100")
	ev.Source = SourceRef{Kind: SourceOrder, ID: 77}

	got, err := f.service.OnTransactionCreated(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, f.balanceOf(t, defaultID).IsZero())
}

func TestOnTransactionCreatedAppliesOrderWithoutProject(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "0", true)

	ev := debtIncome(1, usdID, "100")
	ev.Source = SourceRef{Kind: SourceOrder, ID: 42}

	got, err := f.service.OnTransactionCreated(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(100)))
}

func TestOnTransactionCreatedSkipConditions(t *testing.T) {
	f := newLedgerFixture(t)
	f.seedBalance(t, 1, usdID, "0", true)

	noClient := debtIncome(1, usdID, "100")
	noClient.ClientID = nil

	unknownClient := debtIncome(999, usdID, "100")
	unknownCurrency := debtIncome(1, 999, "100")

	skipFlag := debtIncome(1, usdID, "100")
	skipFlag.SkipBalance = true

	for name, ev := range map[string]TransactionEvent{
		"nil client":       noClient,
		"unknown client":   unknownClient,
		"unknown currency": unknownCurrency,
		"skip flag":        skipFlag,
	} {
		got, err := f.service.OnTransactionCreated(context.Background(), ev)
		require.NoError(t, err, name)
		assert.Nil(t, got, name)
	}
}

func TestOnTransactionUpdatedSameClientAmountChange(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "100", true)

	original := debtIncome(1, usdID, "100")
	updated := debtIncome(1, usdID, "150")

	got, err := f.service.OnTransactionUpdated(context.Background(), updated, original)
	require.NoError(t, err)
	require.NotNil(t, got)

	// -100 reversal, +150 re-application on top of the seeded 100.
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(150)),
		"got %s", f.balanceOf(t, defaultID))
}

func TestOnTransactionUpdatedClientChanged(t *testing.T) {
	f := newLedgerFixture(t)
	oldBalance := f.seedBalance(t, 1, usdID, "100", true)
	newBalance := f.seedBalance(t, 2, usdID, "0", true)

	original := debtIncome(1, usdID, "100")
	updated := debtIncome(2, usdID, "100")

	got, err := f.service.OnTransactionUpdated(context.Background(), updated, original)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newBalance, *got)

	assert.True(t, f.balanceOf(t, oldBalance).IsZero(), "old client must be reversed")
	assert.True(t, f.balanceOf(t, newBalance).Equal(decimal.NewFromInt(100)))
}

func TestOnTransactionUpdatedCurrencyChanged(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "1", true)

	// Originally 400 AMD, applied as 1 USD; now 800 AMD, worth 2 USD.
	original := debtIncome(1, amdID, "400")
	updated := debtIncome(1, amdID, "800")

	_, err := f.service.OnTransactionUpdated(context.Background(), updated, original)
	require.NoError(t, err)
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(2)),
		"got %s", f.balanceOf(t, defaultID))
}

func TestOnTransactionUpdatedDebtToggledOff(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "100", true)

	original := debtIncome(1, usdID, "100")
	updated := debtIncome(1, usdID, "100")
	updated.IsDebt = false

	got, err := f.service.OnTransactionUpdated(context.Background(), updated, original)
	require.NoError(t, err)
	assert.Nil(t, got, "a cash-settled transaction carries no balance stamp")
	assert.True(t, f.balanceOf(t, defaultID).IsZero(), "only the reversal applies")
}

func TestOnTransactionUpdatedDebtToggledOn(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "0", true)

	original := debtIncome(1, usdID, "100")
	original.IsDebt = false
	updated := debtIncome(1, usdID, "100")

	got, err := f.service.OnTransactionUpdated(context.Background(), updated, original)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(100)),
		"no reversal for a previously cash-settled transaction")
}

func TestOnTransactionDeletedSkipsNonDebt(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "100", true)

	ev := debtIncome(1, usdID, "100")
	ev.IsDebt = false
	ev.ClientBalanceID = &defaultID

	require.NoError(t, f.service.OnTransactionDeleted(context.Background(), ev))
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(100)))
}

func TestOnTransactionDeletedReversesStampedRow(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "30", true)

	ev := debtIncome(1, usdID, "100")

	got, err := f.service.OnTransactionCreated(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, got)
	ev.ClientBalanceID = got

	require.NoError(t, f.service.OnTransactionDeleted(context.Background(), ev))
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(30)),
		"create followed by delete must restore the original balance, got %s", f.balanceOf(t, defaultID))
}

func TestOnTransactionDeletedStampedCurrencyMismatch(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "1", true)

	// The stamp points at a USD row but the transaction was in AMD: the
	// reversal converts before applying.
	ev := debtIncome(1, amdID, "400")
	ev.ClientBalanceID = &defaultID

	require.NoError(t, f.service.OnTransactionDeleted(context.Background(), ev))
	assert.True(t, f.balanceOf(t, defaultID).IsZero(),
		"got %s", f.balanceOf(t, defaultID))
}

func TestOnTransactionDeletedOwnershipMismatchIsNoOp(t *testing.T) {
	f := newLedgerFixture(t)
	foreign := f.seedBalance(t, 2, usdID, "100", true)
	own := f.seedBalance(t, 1, usdID, "100", true)

	ev := debtIncome(1, usdID, "100")
	ev.ClientBalanceID = &foreign

	require.NoError(t, f.service.OnTransactionDeleted(context.Background(), ev))
	assert.True(t, f.balanceOf(t, foreign).Equal(decimal.NewFromInt(100)),
		"another client's row must not be touched")
	assert.True(t, f.balanceOf(t, own).Equal(decimal.NewFromInt(100)))
}

func TestOnTransactionDeletedMissingStampIsNoOp(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "100", true)

	missing := int64(9999)
	ev := debtIncome(1, usdID, "100")
	ev.ClientBalanceID = &missing

	require.NoError(t, f.service.OnTransactionDeleted(context.Background(), ev))
	assert.True(t, f.balanceOf(t, defaultID).Equal(decimal.NewFromInt(100)))
}

func TestOnTransactionDeletedUnstampedFallsBackToResolution(t *testing.T) {
	f := newLedgerFixture(t)
	defaultID := f.seedBalance(t, 1, usdID, "100", true)

	require.NoError(t, f.service.OnTransactionDeleted(context.Background(), debtIncome(1, usdID, "100")))
	assert.True(t, f.balanceOf(t, defaultID).IsZero())
}
