package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"stockroom/internal/repos"
	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type CheckoutHandler struct {
	Svc   *services.CheckoutService
	Sales *repos.SaleRepo
}

type checkoutReq struct {
	CustomerTaxID string  `json:"customer_tax_id"`
	PaymentMethod string  `json:"payment_method"`
	DiscountPct   float64 `json:"discount_pct"`
}

func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	taxID := ""
	if strings.TrimSpace(req.CustomerTaxID) != "" {
		var ok bool
		taxID, ok = validate.TaxID(req.CustomerTaxID)
		if !ok {
			return badRequest(c, "invalid customer tax id")
		}
	}
	result, err := h.Svc.Checkout(sessionID(c), taxID, req.PaymentMethod, req.DiscountPct)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *CheckoutHandler) GetSale(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid sale id")
	}
	result, err := h.Svc.GetSale(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}

func (h *CheckoutHandler) ListSales(c *fiber.Ctx) error {
	sales, err := h.Sales.ListBySession(sessionID(c), 50)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"sales": sales})
}

type cancelSaleReq struct {
	Reason string `json:"reason"`
}

func (h *CheckoutHandler) CancelSale(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid sale id")
	}
	var req cancelSaleReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return badRequest(c, "cancellation requires a reason")
	}
	if err := h.Svc.CancelSale(id, reason, sessionID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
