package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(sessionID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cv)
}

type cartItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req cartItemReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	id, ok := validate.ID(req.ProductID)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	cv, err := h.Cart.AddItem(sessionID(c), id, req.Qty)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cv)
}

func (h *CartHandler) ChangeQuantity(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("productId"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	var req cartItemReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	cv, err := h.Cart.ChangeQuantity(sessionID(c), id, req.Qty)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cv)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("productId"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	cv, err := h.Cart.RemoveItem(sessionID(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cv)
}

func (h *CartHandler) Cancel(c *fiber.Ctx) error {
	if err := h.Cart.Cancel(sessionID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
