package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/LibraryHub/internal/models"
)

const identityKey = "identity"

// TokenVerifier turns a bearer token into the identity it was issued to.
type TokenVerifier interface {
	VerifyToken(token string) (models.Identity, error)
}

// Auth validates the bearer token and stores the caller's identity in the request context.
func Auth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
		}

		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token format"})
		}

		identity, err := verifier.VerifyToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by Auth.
func CurrentIdentity(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityKey).(models.Identity)
	return identity, ok
}
