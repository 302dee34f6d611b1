package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// sessionID returns the caller's session id, minting a sid cookie when the
// request carries none.
func sessionID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{Name: "sid", Value: sid, Path: "/", HTTPOnly: true})
	}
	return sid
}
