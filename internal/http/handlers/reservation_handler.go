package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type ReservationHandler struct {
	Resv *services.ReservationService
}

type reserveReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	var req reserveReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	id, ok := validate.ID(req.ProductID)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	res, err := h.Resv.Reserve(id, sessionID(c), req.Qty)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// List returns the session's active holds, newest first, after reclaiming any
// that expired.
func (h *ReservationHandler) List(c *fiber.Ctx) error {
	if _, err := h.Resv.Sweep(); err != nil {
		return fail(c, err)
	}
	rows, err := h.Resv.ActiveForSession(sessionID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"reservations": rows})
}

// Release frees every active hold the session has on a product. Releasing
// when nothing is held is a no-op, not an error.
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("productId"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	freed, err := h.Resv.Release(id, sessionID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"released": freed})
}

func (h *ReservationHandler) ReleaseByID(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	freed, err := h.Resv.ReleaseByID(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"released": freed})
}

func (h *ReservationHandler) Sweep(c *fiber.Ctx) error {
	n, err := h.Resv.Sweep()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"reclaimed": n})
}
