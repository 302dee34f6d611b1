package handlers

import (
	"stockroom/internal/config"
	"stockroom/internal/repos"
	"stockroom/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	ProductHandler     *ProductHandler
	StockHandler       *StockHandler
	ReservationHandler *ReservationHandler
	CartHandler        *CartHandler
	CheckoutHandler    *CheckoutHandler
	CustomerHandler    *CustomerHandler
	MovementHandler    *MovementHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	prodRepo := repos.NewProductRepo(db)
	resvRepo := repos.NewReservationRepo(db)
	cartRepo := repos.NewCartRepo(db)
	saleRepo := repos.NewSaleRepo(db)
	movRepo := repos.NewMovementRepo(db)
	custRepo := repos.NewCustomerRepo(db)

	locks := services.NewProductLocks()

	ledger := services.NewStockLedger(db, prodRepo, movRepo, locks)
	resvSvc := services.NewReservationService(db, resvRepo, prodRepo, movRepo, ledger, locks, cfg.ReservationTTL)
	cartSvc := services.NewCartService(db, cartRepo, prodRepo, resvSvc, cfg.CartTTL)
	checkoutSvc := services.NewCheckoutService(db, cartRepo, custRepo, saleRepo, ledger, resvSvc, locks)
	catalogSvc := services.NewCatalogService(db, prodRepo, custRepo)

	return &Deps{
		ProductHandler:     &ProductHandler{Catalog: catalogSvc},
		StockHandler:       &StockHandler{Ledger: ledger, Resv: resvSvc},
		ReservationHandler: &ReservationHandler{Resv: resvSvc},
		CartHandler:        &CartHandler{Cart: cartSvc},
		CheckoutHandler:    &CheckoutHandler{Svc: checkoutSvc, Sales: saleRepo},
		CustomerHandler:    &CustomerHandler{Catalog: catalogSvc},
		MovementHandler:    &MovementHandler{Movs: movRepo},
	}
}
