package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockroom/internal/services"
	"stockroom/internal/validate"
)

type CustomerHandler struct {
	Catalog *services.CatalogService
}

type createCustomerReq struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
}

func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var req createCustomerReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "invalid name")
	}
	taxID, ok := validate.TaxID(req.TaxID)
	if !ok {
		return badRequest(c, "invalid tax id")
	}
	cust, err := h.Catalog.CreateCustomer(name, taxID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cust)
}

func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	taxID, ok := validate.TaxID(c.Params("taxId"))
	if !ok {
		return badRequest(c, "invalid tax id")
	}
	cust, err := h.Catalog.GetCustomer(taxID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(cust)
}
