package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"stockroom/internal/repos"
	"stockroom/internal/validate"
)

type MovementHandler struct {
	Movs *repos.MovementRepo
}

func (h *MovementHandler) ListByProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	ms, err := h.Movs.ListByProduct(id, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"movements": ms})
}
