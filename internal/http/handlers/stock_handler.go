package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type StockHandler struct {
	Ledger *services.StockLedger
	Resv   *services.ReservationService
}

// Availability reports on_hand - reserved after reclaiming expired holds, so
// the number reflects what a reservation placed right now could actually get.
func (h *StockHandler) Availability(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	if _, err := h.Resv.Sweep(); err != nil {
		return fail(c, err)
	}
	avail, err := h.Ledger.Available(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"product_id": id, "available": avail})
}

type stockMoveReq struct {
	Qty int `json:"qty"`
}

func (h *StockHandler) Entry(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	var req stockMoveReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.Ledger.IncreaseOnHand(id, req.Qty, sessionID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *StockHandler) Withdraw(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	var req stockMoveReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.Ledger.DecreaseOnHand(id, req.Qty, sessionID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type adjustReq struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	var req adjustReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return badRequest(c, "adjustment requires a note")
	}
	if err := h.Ledger.AdjustOnHand(id, req.Delta, note, sessionID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
