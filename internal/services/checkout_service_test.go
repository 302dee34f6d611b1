package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
)

func TestCheckoutFinalizesCart(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "tv-55-4k", 2)
	require.NoError(t, err)
	_, err = e.Cart.AddItem("s1", "bt-speaker", 3)
	require.NoError(t, err)

	res, err := e.Checkout.Checkout("s1", "39053344705", domain.PaymentCredit, 10)
	require.NoError(t, err)

	require.Equal(t, "6240.00", res.Sale.Subtotal.StringFixed(2))
	require.Equal(t, "624.00", res.Sale.Discount.StringFixed(2))
	require.Equal(t, "5616.00", res.Sale.Total.StringFixed(2))
	require.Equal(t, domain.SaleCompleted, res.Sale.Status)
	require.NotNil(t, res.Sale.CustomerID)
	require.Equal(t, "c-ana", *res.Sale.CustomerID)
	require.Len(t, res.Items, 2)

	// stock really left the building, and the holds went with it
	onHand, reserved := e.counters(t, "tv-55-4k")
	require.Equal(t, 8, onHand)
	require.Zero(t, reserved)
	onHand, reserved = e.counters(t, "bt-speaker")
	require.Equal(t, 22, onHand)
	require.Zero(t, reserved)

	// the cart reached its terminal state; a new session contact starts fresh
	var status string
	require.NoError(t, e.Prods.DB().Get(&status, `SELECT status FROM carts WHERE session_id = 's1'`))
	require.Equal(t, domain.CartFinalized, status)
	cv, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Empty(t, cv.Items)
}

func TestCheckoutAnonymousAndZeroDiscount(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "espresso-m1", 1)
	require.NoError(t, err)

	res, err := e.Checkout.Checkout("s1", "", domain.PaymentCash, 0)
	require.NoError(t, err)
	require.Nil(t, res.Sale.CustomerID)
	require.Equal(t, "450.00", res.Sale.Total.StringFixed(2))
	require.Equal(t, "Espresso Machine", res.Items[0].ProductName)
}

func TestCheckoutRefusesExpiredCart(t *testing.T) {
	e := newEngine(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// s1 holds the full stock, then walks away past the cart window
	e.setClock(base)
	_, err := e.Cart.AddItem("s1", "tv-55-4k", 10)
	require.NoError(t, err)

	// the reclaimed stock is re-granted to another shopper
	e.setClock(base.Add(31 * time.Minute))
	_, err = e.Resv.Reserve("tv-55-4k", "s2", 10)
	require.NoError(t, err)

	// the stale cart must not finalize against stock it no longer holds
	_, err = e.Checkout.Checkout("s1", "", domain.PaymentCash, 0)
	require.ErrorIs(t, err, domain.ErrEmptyCart)

	var sales int
	require.NoError(t, e.Prods.DB().Get(&sales, `SELECT COUNT(*) FROM sales`))
	require.Zero(t, sales)

	onHand, reserved := e.counters(t, "tv-55-4k")
	require.Equal(t, 10, onHand)
	require.Equal(t, 10, reserved, "the surviving holds are all s2's")
	holds, err := e.Resv.ActiveForSession("s2")
	require.NoError(t, err)
	require.Len(t, holds, 1)
	require.Equal(t, 10, holds[0].Qty)

	var status string
	require.NoError(t, e.Prods.DB().Get(&status, `SELECT status FROM carts WHERE session_id = 's1'`))
	require.Equal(t, domain.CartExpired, status)
}

func TestCheckoutValidation(t *testing.T) {
	e := newEngine(t)

	// empty cart, both "no cart" and "cart with no lines"
	_, err := e.Checkout.Checkout("s1", "", domain.PaymentCash, 0)
	require.ErrorIs(t, err, domain.ErrEmptyCart)
	_, err = e.Cart.GetOrCreate("s1")
	require.NoError(t, err)
	_, err = e.Checkout.Checkout("s1", "", domain.PaymentCash, 0)
	require.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = e.Cart.AddItem("s1", "bt-speaker", 1)
	require.NoError(t, err)

	_, err = e.Checkout.Checkout("s1", "", "IOU", 0)
	require.ErrorIs(t, err, domain.ErrInvalidPayment)
	_, err = e.Checkout.Checkout("s1", "", domain.PaymentCash, -1)
	require.ErrorIs(t, err, domain.ErrInvalidDiscount)
	_, err = e.Checkout.Checkout("s1", "", domain.PaymentCash, 101)
	require.ErrorIs(t, err, domain.ErrInvalidDiscount)
	_, err = e.Checkout.Checkout("s1", "00000000000", domain.PaymentCash, 0)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	// all of the above left the cart alone
	cv, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
}

func TestCheckoutRejectsInactiveCustomer(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "bt-speaker", 1)
	require.NoError(t, err)
	require.NoError(t, e.Custs.Deactivate(e.Prods.DB(), "c-rui"))

	_, err = e.Checkout.Checkout("s1", "11144477735", domain.PaymentDebit, 0)
	require.ErrorIs(t, err, domain.ErrCustomerInactive)
}

func TestCheckoutRollsBackWhenStockVanished(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "bt-speaker", 5)
	require.NoError(t, err)
	_, err = e.Cart.AddItem("s1", "espresso-m1", 1)
	require.NoError(t, err)

	// physical stock shrinks under the hold (audit correction)
	require.NoError(t, e.Ledger.AdjustOnHand("bt-speaker", -23, "audit correction", "admin"))

	_, err = e.Checkout.Checkout("s1", "", domain.PaymentCash, 0)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// nothing persisted: no sale, no exit movements, cart still open
	var n int
	require.NoError(t, e.Prods.DB().Get(&n, `SELECT COUNT(*) FROM sales`))
	require.Zero(t, n)
	require.NoError(t, e.Prods.DB().Get(&n, `SELECT COUNT(*) FROM stock_movements WHERE type = 'EXIT'`))
	require.Zero(t, n)
	onHand, _ := e.counters(t, "espresso-m1")
	require.Equal(t, 8, onHand)
	cv, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Len(t, cv.Items, 2)
}

func TestCheckoutLeavesOtherSessionsHoldsAlone(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "tv-55-4k", 2)
	require.NoError(t, err)
	_, err = e.Cart.AddItem("s2", "tv-55-4k", 4)
	require.NoError(t, err)

	_, err = e.Checkout.Checkout("s1", "", domain.PaymentPix, 0)
	require.NoError(t, err)

	onHand, reserved := e.counters(t, "tv-55-4k")
	require.Equal(t, 8, onHand)
	require.Equal(t, 4, reserved, "the other session's hold survives")

	// and that session can still check out
	_, err = e.Checkout.Checkout("s2", "", domain.PaymentPix, 0)
	require.NoError(t, err)
	onHand, reserved = e.counters(t, "tv-55-4k")
	require.Equal(t, 4, onHand)
	require.Zero(t, reserved)
}

func TestCheckoutAfterRemovingLineDeductsOnlyRemainder(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "tv-55-4k", 2)
	require.NoError(t, err)
	_, err = e.Cart.AddItem("s1", "bt-speaker", 3)
	require.NoError(t, err)
	_, err = e.Cart.RemoveItem("s1", "tv-55-4k")
	require.NoError(t, err)

	res, err := e.Checkout.Checkout("s1", "", domain.PaymentCash, 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, "bt-speaker", res.Items[0].ProductID)

	onHand, reserved := e.counters(t, "tv-55-4k")
	require.Equal(t, 10, onHand, "the removed line's stock is untouched")
	require.Zero(t, reserved)
	onHand, _ = e.counters(t, "bt-speaker")
	require.Equal(t, 22, onHand)
}

func TestCancelSaleRestoresStock(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "tv-55-4k", 3)
	require.NoError(t, err)
	res, err := e.Checkout.Checkout("s1", "", domain.PaymentCash, 0)
	require.NoError(t, err)

	onHand, _ := e.counters(t, "tv-55-4k")
	require.Equal(t, 7, onHand)

	require.NoError(t, e.Checkout.CancelSale(res.Sale.ID, "customer returned order", "admin"))
	onHand, _ = e.counters(t, "tv-55-4k")
	require.Equal(t, 10, onHand)

	got, err := e.Checkout.GetSale(res.Sale.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SaleCancelled, got.Sale.Status)

	// the restoration is an auditable adjustment
	ms, err := e.Movs.ListByProduct("tv-55-4k", 5)
	require.NoError(t, err)
	require.Equal(t, domain.MovementAdjustment, ms[0].Type)
	require.Equal(t, 3, ms[0].Qty)

	// cancelling twice is refused
	err = e.Checkout.CancelSale(res.Sale.ID, "again", "admin")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetSaleUnknown(t *testing.T) {
	e := newEngine(t)
	_, err := e.Checkout.GetSale("missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
