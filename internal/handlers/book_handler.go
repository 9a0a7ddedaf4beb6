package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/services"
)

// ListBooks handles GET /api/books with page, limit, search, category and sort.
func (h *Handler) ListBooks(c *fiber.Ctx) error {
	query := models.BookQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}
	var ok bool
	if query.Page, ok = queryInt(c, "page"); !ok {
		return badRequest(c, "page must be a positive integer")
	}
	if query.Limit, ok = queryInt(c, "limit"); !ok {
		return badRequest(c, "limit must be a positive integer")
	}

	page, err := h.books.List(c.UserContext(), query)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}

// queryInt reads an optional positive integer; absent yields 0.
func queryInt(c *fiber.Ctx, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// GetBook handles GET /api/books/:id.
func (h *Handler) GetBook(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid book id")
	}
	book, err := h.books.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(book)
}

// CreateBook handles POST /api/books.
func (h *Handler) CreateBook(c *fiber.Ctx) error {
	var request services.CreateBookInput
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Invalid request body")
	}
	book, err := h.books.Create(c.UserContext(), identity(c), request)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// UploadCover accepts a multipart form with the image in the "cover" field.
func (h *Handler) UploadCover(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid book id")
	}

	fileHeader, err := c.FormFile("cover")
	if err != nil {
		return badRequest(c, "Failed to retrieve file")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "Failed to open file")
	}
	defer file.Close()

	key, err := h.books.UploadCover(c.UserContext(), identity(c), id, services.CoverUpload{
		Body:        file,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"cover_key": key})
}

// CoverURL handles GET /api/books/:id/cover.
func (h *Handler) CoverURL(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid book id")
	}
	url, err := h.books.CoverURL(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"url":        url,
		"expires_in": int(services.CoverURLTTL.Seconds()),
	})
}
