package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/services"
	"github.com/arzan03/LibraryHub/internal/store"
)

const internalErrorMessage = "Internal server error"

var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "Invalid credentials"},
	{services.ErrInvalidToken, fiber.StatusUnauthorized, "Invalid token"},
	{policy.ErrForbidden, fiber.StatusForbidden, "Access denied"},
	{store.ErrUserNotFound, fiber.StatusNotFound, "User not found"},
	{store.ErrBookNotFound, fiber.StatusNotFound, "Book not found"},
	{store.ErrLoanNotFound, fiber.StatusNotFound, "Loan not found"},
	{services.ErrCoverNotFound, fiber.StatusNotFound, "Book has no cover"},
	{store.ErrDuplicateEmail, fiber.StatusConflict, "User already exists"},
	{store.ErrNoCopiesAvailable, fiber.StatusConflict, "No copies available"},
	{store.ErrLoanAlreadyReturned, fiber.StatusConflict, "Loan already returned"},
	{store.ErrUnsupportedBookSorting, fiber.StatusBadRequest, "Invalid sort column"},
	{services.ErrCoversDisabled, fiber.StatusServiceUnavailable, "Cover storage is not configured"},
}

// StatusFor maps a service or store error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, ve.Message
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.message
		}
	}
	return fiber.StatusInternalServerError, internalErrorMessage
}

// fail writes err as {"error": message}. Unexpected errors are logged and
// reach the client only as a generic message.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status, msg := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err.Error(),
		)
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
