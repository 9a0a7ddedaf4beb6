package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/LibraryHub/internal/policy"
)

// RequireRole lets the request through only when the authenticated caller
// satisfies rule. It must run after Auth.
func RequireRole(rule policy.Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
		}
		if !rule.Allows(identity) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
		}
		return c.Next()
	}
}

// LimitBody rejects request bodies larger than max bytes.
func LimitBody(max int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if max > 0 && len(c.Body()) > max {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "Request body too large"})
		}
		return c.Next()
	}
}
