package services_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
)

func TestLedgerEntryAndWithdrawal(t *testing.T) {
	e := newEngine(t)

	require.NoError(t, e.Ledger.IncreaseOnHand("bt-speaker", 5, "s1"))
	onHand, _ := e.counters(t, "bt-speaker")
	require.Equal(t, 30, onHand)

	require.NoError(t, e.Ledger.DecreaseOnHand("bt-speaker", 12, "s1"))
	onHand, _ = e.counters(t, "bt-speaker")
	require.Equal(t, 18, onHand)

	ms, err := e.Movs.ListByProduct("bt-speaker", 10)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	// newest first
	require.Equal(t, domain.MovementExit, ms[0].Type)
	require.Equal(t, -12, ms[0].Qty)
	require.Equal(t, 30, ms[0].OnHandBefore)
	require.Equal(t, 18, ms[0].OnHandAfter)
	require.Equal(t, domain.MovementEntry, ms[1].Type)
	require.Equal(t, 5, ms[1].Qty)
}

func TestLedgerRejectsNonPositiveQty(t *testing.T) {
	e := newEngine(t)

	err := e.Ledger.IncreaseOnHand("bt-speaker", 0, "s1")
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	err = e.Ledger.DecreaseOnHand("bt-speaker", -3, "s1")
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestLedgerWithdrawalBeyondStockFails(t *testing.T) {
	e := newEngine(t)

	err := e.Ledger.DecreaseOnHand("espresso-m1", 9, "s1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// nothing changed, nothing logged
	onHand, _ := e.counters(t, "espresso-m1")
	require.Equal(t, 8, onHand)
	ms, err := e.Movs.ListByProduct("espresso-m1", 10)
	require.NoError(t, err)
	require.Empty(t, ms)
}

func TestWithdrawalLeavesForeignHoldsIntact(t *testing.T) {
	e := newEngine(t)

	_, err := e.Resv.Reserve("bt-speaker", "s1", 5)
	require.NoError(t, err)

	// a back-office withdrawal holds no reservation of its own, so the
	// shopper's 5 must survive as long as stock covers them
	require.NoError(t, e.Ledger.DecreaseOnHand("bt-speaker", 10, "clerk"))
	onHand, reserved := e.counters(t, "bt-speaker")
	require.Equal(t, 15, onHand)
	require.Equal(t, 5, reserved)
	avail, err := e.Ledger.Available("bt-speaker")
	require.NoError(t, err)
	require.Equal(t, 10, avail)

	// only when stock drops below the hold does reserved get clamped
	require.NoError(t, e.Ledger.DecreaseOnHand("bt-speaker", 13, "clerk"))
	onHand, reserved = e.counters(t, "bt-speaker")
	require.Equal(t, 2, onHand)
	require.Equal(t, 2, reserved)
}

func TestLedgerAdjustClampsReserved(t *testing.T) {
	e := newEngine(t)

	_, err := e.Resv.Reserve("bt-speaker", "s1", 10)
	require.NoError(t, err)

	// shrink physical stock below the reserved total
	require.NoError(t, e.Ledger.AdjustOnHand("bt-speaker", -20, "shrinkage after audit", "admin"))
	onHand, reserved := e.counters(t, "bt-speaker")
	require.Equal(t, 5, onHand)
	require.Equal(t, 5, reserved, "reserved must be clamped to on_hand")

	// an adjustment below zero is refused outright
	err = e.Ledger.AdjustOnHand("bt-speaker", -6, "too far", "admin")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestLedgerUnknownProduct(t *testing.T) {
	e := newEngine(t)

	_, err := e.Ledger.Available("nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
	err = e.Ledger.IncreaseOnHand("nope", 1, "s1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
