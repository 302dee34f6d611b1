package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	activeOnly := c.Query("active") != "all"
	ps, err := h.Catalog.List(activeOnly)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"products": ps})
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	p, err := h.Catalog.Get(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

type createProductReq struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	SalePrice string `json:"sale_price"`
	CostPrice string `json:"cost_price"`
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req createProductReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "invalid name")
	}
	sale, err := decimal.NewFromString(req.SalePrice)
	if err != nil {
		return badRequest(c, "invalid sale_price")
	}
	cost, err := decimal.NewFromString(req.CostPrice)
	if err != nil {
		return badRequest(c, "invalid cost_price")
	}
	p, err := h.Catalog.Create(name, req.Category, sale, cost)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *ProductHandler) Deactivate(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	if err := h.Catalog.Deactivate(id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
