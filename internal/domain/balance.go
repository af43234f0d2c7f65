package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Contract item balances behave like an append-only quantity ledger:
// consumption decrements, reversal increments, and corrections are made by
// reversing and re-applying rather than editing in place. These are the only
// operations allowed to move CurrentBalance.

// ApplyConsumption draws qty from the item's balance. It fails with
// ErrInsufficientBalance when the result would be negative, so a transient
// negative state can never be persisted.
func (i *ContractItem) ApplyConsumption(qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
	}
	remaining := i.CurrentBalance.Sub(qty)
	if remaining.Sign() < 0 {
		return fmt.Errorf("%w: %q has %s %s available, requested %s",
			ErrInsufficientBalance, i.Description, i.CurrentBalance, i.Unit, qty)
	}
	i.CurrentBalance = remaining
	return nil
}

// ReverseConsumption gives qty back to the item's balance. The result is
// capped at OriginalQty, which makes a double reversal a no-op beyond the
// contracted quantity instead of inflating the ledger.
func (i *ContractItem) ReverseConsumption(qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
	}
	restored := i.CurrentBalance.Add(qty)
	if restored.GreaterThan(i.OriginalQty) {
		restored = i.OriginalQty
	}
	i.CurrentBalance = restored
	return nil
}

// ReconcileOnItemEdit shifts the balance by the change in contracted
// quantity, preserving whatever has already been invoiced. Shrinking the
// contracted quantity below the consumed quantity is rejected.
func (i *ContractItem) ReconcileOnItemEdit(newQty decimal.Decimal) error {
	if newQty.Sign() <= 0 {
		return fmt.Errorf("%w: contracted quantity must be positive", ErrInvalidQuantity)
	}
	delta := newQty.Sub(i.OriginalQty)
	shifted := i.CurrentBalance.Add(delta)
	if shifted.Sign() < 0 {
		consumed := i.OriginalQty.Sub(i.CurrentBalance)
		return fmt.Errorf("%w: %s %s already invoiced on %q, cannot reduce contracted quantity to %s",
			ErrInsufficientBalance, consumed, i.Unit, i.Description, newQty)
	}
	i.OriginalQty = newQty
	i.CurrentBalance = shifted
	return nil
}
