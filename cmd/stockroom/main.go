package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"stockroom/internal/config"
	"stockroom/internal/http/handlers"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	deps := handlers.NewDeps(db, cfg)

	api := app.Group("/api/v1")

	// Catalog
	api.Get("/products", deps.ProductHandler.List)
	api.Post("/products", deps.ProductHandler.Create)
	api.Get("/products/:id", deps.ProductHandler.Get)
	api.Delete("/products/:id", deps.ProductHandler.Deactivate)

	// Stock ledger
	api.Get("/products/:id/availability", deps.StockHandler.Availability)
	api.Post("/products/:id/entries", deps.StockHandler.Entry)
	api.Post("/products/:id/withdrawals", deps.StockHandler.Withdraw)
	api.Post("/products/:id/adjustments", deps.StockHandler.Adjust)
	api.Get("/products/:id/movements", deps.MovementHandler.ListByProduct)

	// Reservations
	api.Get("/reservations", deps.ReservationHandler.List)
	api.Post("/reservations", deps.ReservationHandler.Reserve)
	api.Delete("/reservations/product/:productId", deps.ReservationHandler.Release)
	api.Delete("/reservations/:id", deps.ReservationHandler.ReleaseByID)
	api.Post("/reservations/sweep", deps.ReservationHandler.Sweep)

	// Cart
	api.Get("/cart", deps.CartHandler.View)
	api.Post("/cart/items", deps.CartHandler.AddItem)
	api.Put("/cart/items/:productId", deps.CartHandler.ChangeQuantity)
	api.Delete("/cart/items/:productId", deps.CartHandler.RemoveItem)
	api.Delete("/cart", deps.CartHandler.Cancel)

	// Checkout & sales
	api.Post("/checkout", deps.CheckoutHandler.Checkout)
	api.Get("/sales", deps.CheckoutHandler.ListSales)
	api.Get("/sales/:id", deps.CheckoutHandler.GetSale)
	api.Post("/sales/:id/cancel", deps.CheckoutHandler.CancelSale)

	// Customers
	api.Post("/customers", deps.CustomerHandler.Create)
	api.Get("/customers/:taxId", deps.CustomerHandler.Get)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
