// Package handlers adapts the services to fiber routes.
package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/LibraryHub/internal/middleware"
	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth    *services.AuthService
	Books   *services.BookService
	Loans   *services.LoanService
	Users   *services.UserService
	Reports *services.ReportService
	Store   Pinger
	Logger  *slog.Logger
}

type Handler struct {
	auth    *services.AuthService
	books   *services.BookService
	loans   *services.LoanService
	users   *services.UserService
	reports *services.ReportService
	store   Pinger
	logger  *slog.Logger
	now     func() time.Time
}

// New builds the handler set. A nil logger falls back to slog.Default.
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:    d.Auth,
		books:   d.Books,
		loans:   d.Loans,
		users:   d.Users,
		reports: d.Reports,
		store:   d.Store,
		logger:  logger,
		now:     time.Now,
	}
}

// identity is set by middleware.Auth on every route that calls this.
func identity(c *fiber.Ctx) models.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

// paramID parses the :id route parameter.
func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
