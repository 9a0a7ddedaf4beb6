// Package server assembles the fiber application and its routes.
package server

import (
	"errors"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/arzan03/LibraryHub/internal/handlers"
	"github.com/arzan03/LibraryHub/internal/middleware"
	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/services"
)

type Options struct {
	FrontendURL string
	// BodyLimit caps JSON request bodies. Cover uploads are bounded separately.
	BodyLimit int
	// AccessLog enables the per-request log line.
	AccessLog bool
	Logger    *slog.Logger
}

// coverBodyLimit leaves room for multipart framing around the largest cover.
const coverBodyLimit = services.MaxCoverSize + 1<<20

// New builds the application. verifier authenticates bearer tokens.
func New(h *handlers.Handler, verifier middleware.TokenVerifier, opts Options) *fiber.App {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	appLimit := coverBodyLimit
	if opts.BodyLimit > appLimit {
		appLimit = opts.BodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:               "LibraryHub",
		BodyLimit:             appLimit,
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     opts.FrontendURL,
		AllowCredentials: opts.FrontendURL != "*",
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH",
		AllowHeaders:     "Content-Type,Authorization",
	}))

	jsonBody := middleware.LimitBody(opts.BodyLimit)
	auth := middleware.Auth(verifier)

	api := app.Group("/api")
	api.Get("/health", h.Health)

	authRoutes := api.Group("/auth", jsonBody)
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)

	books := api.Group("/books")
	books.Get("/", h.ListBooks)
	books.Get("/:id", h.GetBook)
	books.Get("/:id/cover", h.CoverURL)
	books.Post("/", jsonBody, auth, middleware.RequireRole(policy.ManageCatalog), h.CreateBook)
	books.Put("/:id/cover", auth, middleware.RequireRole(policy.ManageCatalog), h.UploadCover)

	loans := api.Group("/loans", jsonBody, auth)
	loans.Get("/", h.ListLoans)
	loans.Post("/", h.Borrow)
	loans.Put("/:id", h.Return)

	api.Get("/users/profile", auth, h.Profile)
	api.Get("/reports", auth, middleware.RequireRole(policy.ViewReports), h.Reports)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Route not found"})
	})

	return app
}

// errorHandler renders errors that escape the handlers, including fiber's
// own (body too large, method not allowed) and recovered panics.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		status, msg := handlers.StatusFor(err)
		if status == fiber.StatusInternalServerError {
			log.Error("unhandled error",
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.Locals("requestid"),
				"error", err.Error(),
			)
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
}
