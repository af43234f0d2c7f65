package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerItem(originalQty, currentBalance string) *ContractItem {
	return &ContractItem{
		Description:    "Papel A4",
		Unit:           "RES",
		OriginalQty:    decimal.RequireFromString(originalQty),
		UnitPrice:      decimal.RequireFromString("25.00"),
		CurrentBalance: decimal.RequireFromString(currentBalance),
	}
}

func TestApplyConsumption(t *testing.T) {
	t.Run("draws from the balance", func(t *testing.T) {
		item := newLedgerItem("100", "100")
		err := item.ApplyConsumption(decimal.RequireFromString("30"))
		require.NoError(t, err)
		assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("70")))
	})

	t.Run("allows draining to exactly zero", func(t *testing.T) {
		item := newLedgerItem("100", "30")
		err := item.ApplyConsumption(decimal.RequireFromString("30"))
		require.NoError(t, err)
		assert.True(t, item.CurrentBalance.IsZero())
		assert.Equal(t, ContractItemExhausted, item.State())
	})

	t.Run("rejects overdraw", func(t *testing.T) {
		item := newLedgerItem("100", "70")
		err := item.ApplyConsumption(decimal.RequireFromString("80"))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("70")), "balance must be untouched on failure")
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		item := newLedgerItem("100", "100")
		err := item.ApplyConsumption(decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		item := newLedgerItem("100", "100")
		err := item.ApplyConsumption(decimal.RequireFromString("-5"))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestReverseConsumption(t *testing.T) {
	t.Run("restores the balance", func(t *testing.T) {
		item := newLedgerItem("100", "70")
		err := item.ReverseConsumption(decimal.RequireFromString("30"))
		require.NoError(t, err)
		assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("100")))
	})

	t.Run("caps restoration at the contracted quantity", func(t *testing.T) {
		item := newLedgerItem("100", "90")
		err := item.ReverseConsumption(decimal.RequireFromString("30"))
		require.NoError(t, err)
		assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("100")))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		item := newLedgerItem("100", "50")
		assert.ErrorIs(t, item.ReverseConsumption(decimal.Zero), ErrInvalidQuantity)
	})
}

func TestReconcileOnItemEdit(t *testing.T) {
	t.Run("raising quantity grows the balance by the delta", func(t *testing.T) {
		item := newLedgerItem("100", "70")
		err := item.ReconcileOnItemEdit(decimal.RequireFromString("150"))
		require.NoError(t, err)
		assert.True(t, item.OriginalQty.Equal(decimal.RequireFromString("150")))
		assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("120")))
	})

	t.Run("lowering quantity keeps invoiced consumption", func(t *testing.T) {
		item := newLedgerItem("100", "70")
		err := item.ReconcileOnItemEdit(decimal.RequireFromString("50"))
		require.NoError(t, err)
		assert.True(t, item.OriginalQty.Equal(decimal.RequireFromString("50")))
		assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("20")))
	})

	t.Run("cannot shrink below what was already invoiced", func(t *testing.T) {
		item := newLedgerItem("100", "70")
		err := item.ReconcileOnItemEdit(decimal.RequireFromString("20"))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.True(t, item.OriginalQty.Equal(decimal.RequireFromString("100")), "quantity must be untouched on failure")
		assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("70")))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		item := newLedgerItem("100", "100")
		assert.ErrorIs(t, item.ReconcileOnItemEdit(decimal.Zero), ErrInvalidQuantity)
	})
}

func TestReverseThenReapplyRoundTrip(t *testing.T) {
	// An unchanged invoice edit must leave the ledger exactly as it was.
	item := newLedgerItem("100", "70")

	require.NoError(t, item.ReverseConsumption(decimal.RequireFromString("30")))
	require.NoError(t, item.ApplyConsumption(decimal.RequireFromString("30")))

	assert.True(t, item.CurrentBalance.Equal(decimal.RequireFromString("70")))
}
