package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockroom/internal/repos"
	"stockroom/internal/services"
)

// engine wires the full service graph over an in-memory database seeded with
// the demo catalog (tv-55-4k x10, bt-speaker x25, espresso-m1 x8).
type engine struct {
	Prods    *repos.ProductRepo
	Resvs    *repos.ReservationRepo
	Carts    *repos.CartRepo
	Sales    *repos.SaleRepo
	Movs     *repos.MovementRepo
	Custs    *repos.CustomerRepo
	Ledger   *services.StockLedger
	Resv     *services.ReservationService
	Cart     *services.CartService
	Checkout *services.CheckoutService
	Catalog  *services.CatalogService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	prodRepo := repos.NewProductRepo(db)
	resvRepo := repos.NewReservationRepo(db)
	cartRepo := repos.NewCartRepo(db)
	saleRepo := repos.NewSaleRepo(db)
	movRepo := repos.NewMovementRepo(db)
	custRepo := repos.NewCustomerRepo(db)
	locks := services.NewProductLocks()

	ledger := services.NewStockLedger(db, prodRepo, movRepo, locks)
	resv := services.NewReservationService(db, resvRepo, prodRepo, movRepo, ledger, locks, 30*time.Minute)
	cart := services.NewCartService(db, cartRepo, prodRepo, resv, 30*time.Minute)
	checkout := services.NewCheckoutService(db, cartRepo, custRepo, saleRepo, ledger, resv, locks)
	catalog := services.NewCatalogService(db, prodRepo, custRepo)

	return &engine{
		Prods: prodRepo, Resvs: resvRepo, Carts: cartRepo, Sales: saleRepo,
		Movs: movRepo, Custs: custRepo,
		Ledger: ledger, Resv: resv, Cart: cart, Checkout: checkout, Catalog: catalog,
	}
}

// setClock pins every service clock to the same instant.
func (e *engine) setClock(at time.Time) {
	clock := func() time.Time { return at }
	e.Ledger.Now = clock
	e.Resv.Now = clock
	e.Cart.Now = clock
	e.Checkout.Now = clock
}

func (e *engine) counters(t *testing.T, productID string) (onHand, reserved int) {
	t.Helper()
	p, err := e.Prods.Get(e.Prods.DB(), productID)
	require.NoError(t, err)
	return p.OnHand, p.Reserved
}
