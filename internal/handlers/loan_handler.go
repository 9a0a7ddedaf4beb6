package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// ListLoans returns the caller's loans, newest first.
func (h *Handler) ListLoans(c *fiber.Ctx) error {
	loans, err := h.loans.List(c.UserContext(), identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(loans)
}

// Borrow handles POST /api/loans with {"book_id": n}.
func (h *Handler) Borrow(c *fiber.Ctx) error {
	var request struct {
		BookID int64 `json:"book_id"`
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}

	loan, err := h.loans.Borrow(c.UserContext(), identity(c), request.BookID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(loan)
}

// Return handles PUT /api/loans/:id.
func (h *Handler) Return(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid loan id")
	}

	loan, err := h.loans.Return(c.UserContext(), identity(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(loan)
}
