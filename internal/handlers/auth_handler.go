package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/LibraryHub/internal/services"
)

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *fiber.Ctx) error {
	var request services.RegisterInput
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, token, err := h.auth.Register(c.UserContext(), request)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "User registered successfully",
		"user":        user,
		"accessToken": token,
	})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, token, err := h.auth.Login(c.UserContext(), request.Email, request.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "Login successful",
		"accessToken": token,
		"user":        user,
	})
}
