package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/arzan03/LibraryHub/internal/db"
	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

const (
	tableBooks    = "books"
	tableUsers    = "users"
	colID         = "id"
	colTitle      = "title"
	colAuthor     = "author"
	colCategory   = "category"
	colPublished  = "published_date"
	bookSelectSQL = `SELECT id, title, author, isbn, category, copies_total, copies_available, published_date, cover_key, created_at FROM books`
)

var bookColumns = []any{
	colID, colTitle, colAuthor, "isbn", colCategory, "copies_total", "copies_available", colPublished, "cover_key", "created_at",
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (models.Book, error) {
	var (
		b         models.Book
		published sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.CopiesTotal, &b.CopiesAvailable,
		&published, &b.CoverKey, &b.CreatedAt); err != nil {
		return models.Book{}, err
	}
	if published.Valid {
		d := published.Time.UTC()
		b.PublishedDate = &d
	}
	return b, nil
}

func (s *Store) CreateBook(ctx context.Context, book models.Book) (models.Book, error) {
	book.CreatedAt = book.CreatedAt.UTC()
	var published *time.Time
	if book.PublishedDate != nil {
		d := book.PublishedDate.UTC()
		published = &d
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO books (title, author, isbn, category, copies_total, copies_available, published_date, cover_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		book.Title, book.Author, book.ISBN, book.Category, book.CopiesTotal, book.CopiesAvailable,
		published, book.CoverKey, book.CreatedAt,
	).Scan(&book.ID)
	if err != nil {
		return models.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

func (s *Store) GetBook(ctx context.Context, id int64) (models.Book, error) {
	b, err := scanBook(s.db.QueryRow(ctx, bookSelectSQL+` WHERE id = ?`, id))
	if errors.Is(err, db.ErrNoRows) {
		return models.Book{}, store.ErrBookNotFound
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("select book: %w", err)
	}
	return b, nil
}

func (s *Store) SetCoverKey(ctx context.Context, id int64, key string) error {
	res, err := s.db.Exec(ctx, `UPDATE books SET cover_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return fmt.Errorf("update cover key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cover key: %w", err)
	}
	if n == 0 {
		return store.ErrBookNotFound
	}
	return nil
}

func (s *Store) ListBooks(ctx context.Context, q models.BookQuery) (models.BookPage, error) {
	order, err := bookOrder(q.Sort)
	if err != nil {
		return models.BookPage{}, err
	}

	filter := bookFilter(q)
	page := models.BookPage{Page: q.Page, Limit: q.Limit, Books: []models.Book{}}

	countSQL, countArgs, err := s.builder.From(tableBooks).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(filter...).
		ToSQL()
	if err != nil {
		return models.BookPage{}, fmt.Errorf("build book count query: %w", err)
	}
	if err := s.db.QueryRow(ctx, countSQL, countArgs...).Scan(&page.Total); err != nil {
		return models.BookPage{}, fmt.Errorf("count books: %w", err)
	}

	selectStmt := s.builder.From(tableBooks).
		Prepared(true).
		Select(bookColumns...).
		Where(filter...).
		Order(order...)
	if q.Limit > 0 {
		selectStmt = selectStmt.Limit(uint(q.Limit)).Offset(uint(q.Offset()))
	}
	listSQL, listArgs, err := selectStmt.ToSQL()
	if err != nil {
		return models.BookPage{}, fmt.Errorf("build book list query: %w", err)
	}

	rows, err := s.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return models.BookPage{}, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return models.BookPage{}, fmt.Errorf("scan book: %w", err)
		}
		page.Books = append(page.Books, b)
	}
	if err := rows.Err(); err != nil {
		return models.BookPage{}, fmt.Errorf("list books: %w", err)
	}
	return page, nil
}

func bookFilter(q models.BookQuery) []exp.Expression {
	var where []exp.Expression
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		where = append(where, goqu.Or(
			goqu.Func("LOWER", goqu.C(colTitle)).Like(pattern),
			goqu.Func("LOWER", goqu.C(colAuthor)).Like(pattern),
		))
	}
	if q.Category != "" {
		where = append(where, goqu.C(colCategory).Eq(q.Category))
	}
	return where
}

// bookOrder maps a whitelisted sort column to ORDER BY terms. Rows without a
// value sort last on every dialect and id breaks ties.
func bookOrder(col string) ([]exp.OrderedExpression, error) {
	if col == "" {
		col = colTitle
	}
	if !models.ValidBookSort(col) {
		return nil, store.ErrUnsupportedBookSorting
	}
	order := make([]exp.OrderedExpression, 0, 3)
	if col == colPublished {
		order = append(order, goqu.L(colPublished+" IS NULL").Asc())
	}
	return append(order, goqu.C(col).Asc(), goqu.C(colID).Asc()), nil
}
