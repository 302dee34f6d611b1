package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
)

func TestAddItemReservesAndSnapshotsPrice(t *testing.T) {
	e := newEngine(t)

	cv, err := e.Cart.AddItem("s1", "tv-55-4k", 2)
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
	require.Equal(t, 2, cv.Items[0].Qty)
	require.Equal(t, "3000.00", cv.Items[0].UnitPrice.StringFixed(2))
	require.Equal(t, "6000.00", cv.Items[0].Subtotal.StringFixed(2))
	require.Equal(t, "6000.00", cv.Cart.Subtotal.StringFixed(2))

	_, reserved := e.counters(t, "tv-55-4k")
	require.Equal(t, 2, reserved)
}

func TestAddItemMergesExistingLine(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "bt-speaker", 2)
	require.NoError(t, err)
	cv, err := e.Cart.AddItem("s1", "bt-speaker", 3)
	require.NoError(t, err)

	require.Len(t, cv.Items, 1, "same product folds into one line")
	require.Equal(t, 5, cv.Items[0].Qty)
	require.Equal(t, "400.00", cv.Items[0].Subtotal.StringFixed(2))

	_, reserved := e.counters(t, "bt-speaker")
	require.Equal(t, 5, reserved)
}

func TestAddItemKeepsPriceSnapshotAfterCatalogChange(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "bt-speaker", 1)
	require.NoError(t, err)

	// catalog price moves; the cart line must not
	_, err = e.Prods.DB().Exec(`UPDATE products SET sale_price = '99.00' WHERE id = 'bt-speaker'`)
	require.NoError(t, err)

	cv, err := e.Cart.AddItem("s1", "bt-speaker", 1)
	require.NoError(t, err)
	require.Equal(t, "160.00", cv.Items[0].Subtotal.StringFixed(2))
}

func TestAddItemFailureLeavesCartUntouched(t *testing.T) {
	e := newEngine(t)

	cv, err := e.Cart.AddItem("s1", "tv-55-4k", 6)
	require.NoError(t, err)

	_, err = e.Cart.AddItem("s1", "tv-55-4k", 5)
	require.ErrorIs(t, err, domain.ErrInsufficientAvailability)

	after, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Equal(t, cv.Items[0].Qty, after.Items[0].Qty)
	require.Equal(t, cv.Cart.Subtotal.StringFixed(2), after.Cart.Subtotal.StringFixed(2))
	_, reserved := e.counters(t, "tv-55-4k")
	require.Equal(t, 6, reserved)
}

func TestRemoveItemReleasesHold(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "tv-55-4k", 3)
	require.NoError(t, err)
	_, err = e.Cart.AddItem("s1", "bt-speaker", 2)
	require.NoError(t, err)

	cv, err := e.Cart.RemoveItem("s1", "tv-55-4k")
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
	require.Equal(t, "160.00", cv.Cart.Subtotal.StringFixed(2))

	_, reserved := e.counters(t, "tv-55-4k")
	require.Zero(t, reserved)

	_, err = e.Cart.RemoveItem("s1", "tv-55-4k")
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestChangeQuantityBothDirections(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "bt-speaker", 4)
	require.NoError(t, err)

	// raise: only the delta is newly reserved
	cv, err := e.Cart.ChangeQuantity("s1", "bt-speaker", 9)
	require.NoError(t, err)
	require.Equal(t, 9, cv.Items[0].Qty)
	_, reserved := e.counters(t, "bt-speaker")
	require.Equal(t, 9, reserved)

	// lower: exactly the difference is released
	cv, err = e.Cart.ChangeQuantity("s1", "bt-speaker", 2)
	require.NoError(t, err)
	require.Equal(t, 2, cv.Items[0].Qty)
	require.Equal(t, "160.00", cv.Cart.Subtotal.StringFixed(2))
	_, reserved = e.counters(t, "bt-speaker")
	require.Equal(t, 2, reserved)

	// raise past availability: line stays at its old quantity
	_, err = e.Cart.ChangeQuantity("s1", "bt-speaker", 99)
	require.ErrorIs(t, err, domain.ErrInsufficientAvailability)
	after, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Equal(t, 2, after.Items[0].Qty)

	_, err = e.Cart.ChangeQuantity("s1", "bt-speaker", 0)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestAddItemWriteFailureLeavesNoHoldBehind(t *testing.T) {
	e := newEngine(t)

	// simulate the line insert failing mid-operation
	_, err := e.Prods.DB().Exec(`
	  CREATE TRIGGER cart_items_down BEFORE INSERT ON cart_items
	  BEGIN SELECT RAISE(ABORT, 'cart_items unavailable'); END`)
	require.NoError(t, err)

	_, err = e.Cart.AddItem("s1", "tv-55-4k", 4)
	require.Error(t, err)

	// the hold rolled back with the line
	_, reserved := e.counters(t, "tv-55-4k")
	require.Zero(t, reserved)
	holds, err := e.Resv.ActiveForSession("s1")
	require.NoError(t, err)
	require.Empty(t, holds)
}

func TestRemoveItemWriteFailureKeepsHold(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "tv-55-4k", 3)
	require.NoError(t, err)

	_, err = e.Prods.DB().Exec(`
	  CREATE TRIGGER cart_items_down BEFORE DELETE ON cart_items
	  BEGIN SELECT RAISE(ABORT, 'cart_items unavailable'); END`)
	require.NoError(t, err)

	_, err = e.Cart.RemoveItem("s1", "tv-55-4k")
	require.Error(t, err)

	// the release rolled back with the delete, so line and hold both survive
	cv, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
	require.Equal(t, 3, cv.Items[0].Qty)
	_, reserved := e.counters(t, "tv-55-4k")
	require.Equal(t, 3, reserved)
}

func TestCancelReleasesEverythingAndIsIdempotent(t *testing.T) {
	e := newEngine(t)

	_, err := e.Cart.AddItem("s1", "tv-55-4k", 2)
	require.NoError(t, err)
	_, err = e.Cart.AddItem("s1", "espresso-m1", 1)
	require.NoError(t, err)

	require.NoError(t, e.Cart.Cancel("s1"))
	_, reserved := e.counters(t, "tv-55-4k")
	require.Zero(t, reserved)
	_, reserved = e.counters(t, "espresso-m1")
	require.Zero(t, reserved)

	// cancelling again, or with no cart at all, is a no-op
	require.NoError(t, e.Cart.Cancel("s1"))
	require.NoError(t, e.Cart.Cancel("never-seen"))

	// next contact starts a fresh cart
	cv, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Empty(t, cv.Items)
}

func TestCartExpiryReleasesHolds(t *testing.T) {
	e := newEngine(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	e.setClock(base)
	_, err := e.Cart.AddItem("s1", "tv-55-4k", 5)
	require.NoError(t, err)

	e.setClock(base.Add(31 * time.Minute))
	cv, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Empty(t, cv.Items, "expired cart is gone from the session's view")

	_, reserved := e.counters(t, "tv-55-4k")
	require.Zero(t, reserved)

	var status string
	require.NoError(t, e.Prods.DB().Get(&status,
		`SELECT status FROM carts WHERE session_id = 's1' ORDER BY created_at LIMIT 1`))
	require.Equal(t, domain.CartExpired, status)
}

func TestCartActivityExtendsReservations(t *testing.T) {
	e := newEngine(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	e.setClock(base)
	_, err := e.Cart.AddItem("s1", "tv-55-4k", 5)
	require.NoError(t, err)

	// touching the cart at +20min pushes cart and holds to +50min
	e.setClock(base.Add(20 * time.Minute))
	_, err = e.Cart.GetOrCreate("s1")
	require.NoError(t, err)

	e.setClock(base.Add(40 * time.Minute))
	n, err := e.Resv.Sweep()
	require.NoError(t, err)
	require.Zero(t, n, "renewed holds must survive the original deadline")

	cv, err := e.Cart.View("s1")
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
}

func TestAddItemRejectsDisabledProduct(t *testing.T) {
	e := newEngine(t)

	require.NoError(t, e.Catalog.Deactivate("espresso-m1"))
	_, err := e.Cart.AddItem("s1", "espresso-m1", 1)
	require.ErrorIs(t, err, domain.ErrProductDisabled)

	_, err = e.Cart.AddItem("s1", "tv-55-4k", 0)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
