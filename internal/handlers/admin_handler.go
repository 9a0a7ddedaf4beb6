package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Reports returns the circulation summary. Staff only.
func (h *Handler) Reports(c *fiber.Ctx) error {
	summary, err := h.reports.Summary(c.UserContext(), identity(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(summary)
}

// Health reports liveness and whether the store answers a ping.
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err.Error())
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":    "UNAVAILABLE",
			"timestamp": h.now().UTC(),
		})
	}
	return c.JSON(fiber.Map{
		"status":    "OK",
		"timestamp": h.now().UTC(),
	})
}
