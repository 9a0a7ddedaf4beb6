package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Profile handles GET /api/users/profile.
func (h *Handler) Profile(c *fiber.Ctx) error {
	user, err := h.users.Profile(c.UserContext(), identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}
