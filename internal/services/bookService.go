package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/store"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// MaxCopiesTotal is the largest inventory the INTEGER columns can hold.
	MaxCopiesTotal = 1<<31 - 1

	MaxCoverSize  = 5 << 20
	CoverURLTTL   = 15 * time.Minute
	coverKeyRoot  = "covers"
	dateLayoutISO = time.DateOnly
)

var coverExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// CoverStore keeps cover images outside the database.
type CoverStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type CreateBookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	Category      string `json:"category"`
	CopiesTotal   *int   `json:"copies_total"`
	PublishedDate string `json:"published_date"`
}

// CoverUpload is an image received from a client.
type CoverUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

type BookService struct {
	books  store.BookStore
	covers CoverStore
	now    func() time.Time
}

// NewBookService builds the catalog service. covers may be nil, in which case
// cover operations report ErrCoversDisabled.
func NewBookService(books store.BookStore, covers CoverStore) *BookService {
	return &BookService{books: books, covers: covers, now: time.Now}
}

// List pages through the catalog. Zero values select the defaults.
func (s *BookService) List(ctx context.Context, q models.BookQuery) (models.BookPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultPageLimit
	case q.Limit > MaxPageLimit:
		q.Limit = MaxPageLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)
	if q.Sort == "" {
		q.Sort = "title"
	}
	if !models.ValidBookSort(q.Sort) {
		return models.BookPage{}, invalid("Invalid sort column: must be one of %s", strings.Join(models.BookSort, ", "))
	}
	return s.books.ListBooks(ctx, q)
}

// Get returns one book by id.
func (s *BookService) Get(ctx context.Context, id int64) (models.Book, error) {
	if id <= 0 {
		return models.Book{}, invalid("book id must be a positive integer")
	}
	return s.books.GetBook(ctx, id)
}

// Create adds a title to the catalog with every copy on the shelf.
func (s *BookService) Create(ctx context.Context, who models.Identity, in CreateBookInput) (models.Book, error) {
	if err := policy.ManageCatalog.Check(who); err != nil {
		return models.Book{}, err
	}

	book := models.Book{
		Title:     strings.TrimSpace(in.Title),
		Author:    strings.TrimSpace(in.Author),
		ISBN:      strings.TrimSpace(in.ISBN),
		Category:  strings.TrimSpace(in.Category),
		CreatedAt: s.now().UTC(),
	}
	if book.Title == "" || book.Author == "" {
		return models.Book{}, invalid("Title and author are required")
	}
	if in.CopiesTotal == nil {
		return models.Book{}, invalid("copies_total is required")
	}
	if *in.CopiesTotal < 0 {
		return models.Book{}, invalid("copies_total must not be negative")
	}
	if *in.CopiesTotal > MaxCopiesTotal {
		return models.Book{}, invalid("copies_total must not exceed %d", MaxCopiesTotal)
	}
	book.CopiesTotal = *in.CopiesTotal
	book.CopiesAvailable = *in.CopiesTotal

	if raw := strings.TrimSpace(in.PublishedDate); raw != "" {
		d, err := time.Parse(dateLayoutISO, raw)
		if err != nil {
			return models.Book{}, invalid("published_date must be formatted YYYY-MM-DD")
		}
		book.PublishedDate = &d
	}

	return s.books.CreateBook(ctx, book)
}

// UploadCover stores a cover image and records its key on the book.
func (s *BookService) UploadCover(ctx context.Context, who models.Identity, bookID int64, up CoverUpload) (string, error) {
	if err := policy.ManageCatalog.Check(who); err != nil {
		return "", err
	}
	if s.covers == nil {
		return "", ErrCoversDisabled
	}
	if bookID <= 0 {
		return "", invalid("book id must be a positive integer")
	}
	ext, ok := coverExtensions[strings.ToLower(strings.TrimSpace(up.ContentType))]
	if !ok {
		return "", invalid("Cover must be a JPEG, PNG, GIF or WebP image")
	}
	if up.Size <= 0 || up.Size > MaxCoverSize {
		return "", invalid("Cover must be between 1 byte and %d MiB", MaxCoverSize>>20)
	}

	if _, err := s.books.GetBook(ctx, bookID); err != nil {
		return "", err
	}

	key := path.Join(coverKeyRoot, fmt.Sprint(bookID), uuid.NewString()+ext)
	if err := s.covers.Put(ctx, key, up.Body, up.Size, up.ContentType); err != nil {
		return "", fmt.Errorf("store cover: %w", err)
	}
	if err := s.books.SetCoverKey(ctx, bookID, key); err != nil {
		return "", err
	}
	return key, nil
}

// CoverURL returns a short-lived download link for the book's cover.
func (s *BookService) CoverURL(ctx context.Context, bookID int64) (string, error) {
	if s.covers == nil {
		return "", ErrCoversDisabled
	}
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return "", err
	}
	if book.CoverKey == "" {
		return "", ErrCoverNotFound
	}
	url, err := s.covers.PresignedGetURL(ctx, book.CoverKey, CoverURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign cover: %w", err)
	}
	return url, nil
}
