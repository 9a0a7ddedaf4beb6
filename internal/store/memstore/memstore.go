// Package memstore is an in-memory store.Store for tests and local development.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

// Store keeps every record in maps guarded by one lock. Transactions hold the
// write lock for their whole duration and undo their writes on failure.
type Store struct {
	mu sync.RWMutex

	users map[int64]models.User
	books map[int64]models.Book
	loans map[int64]models.Loan

	nextUserID int64
	nextBookID int64
	nextLoanID int64
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users: make(map[int64]models.User),
		books: make(map[int64]models.Book),
		loans: make(map[int64]models.Loan),
	}
}

func (s *Store) Ping(context.Context) error    { return nil }
func (s *Store) Migrate(context.Context) error { return nil }
func (s *Store) Close() error                  { return nil }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.User{}, store.ErrDuplicateEmail
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = models.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func (s *Store) CreateBook(_ context.Context, book models.Book) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBookID++
	book.ID = s.nextBookID
	s.books[book.ID] = book
	return book, nil
}

func (s *Store) GetBook(_ context.Context, id int64) (models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return models.Book{}, store.ErrBookNotFound
	}
	return b, nil
}

func (s *Store) SetCoverKey(_ context.Context, id int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return store.ErrBookNotFound
	}
	b.CoverKey = key
	s.books[id] = b
	return nil
}

func (s *Store) ListBooks(_ context.Context, q models.BookQuery) (models.BookPage, error) {
	sortCol := q.Sort
	if sortCol == "" {
		sortCol = "title"
	}
	if !models.ValidBookSort(sortCol) {
		return models.BookPage{}, store.ErrUnsupportedBookSorting
	}

	s.mu.RLock()
	matched := make([]models.Book, 0, len(s.books))
	search := strings.ToLower(q.Search)
	for _, b := range s.books {
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Title), search) &&
			!strings.Contains(strings.ToLower(b.Author), search) {
			continue
		}
		if q.Category != "" && b.Category != q.Category {
			continue
		}
		matched = append(matched, b)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch sortCol {
		case "author":
			if a.Author != b.Author {
				return a.Author < b.Author
			}
		case "category":
			if a.Category != b.Category {
				return a.Category < b.Category
			}
		case "published_date":
			if !equalDates(a.PublishedDate, b.PublishedDate) {
				return lessDate(a.PublishedDate, b.PublishedDate)
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		}
		return a.ID < b.ID
	})

	page := models.BookPage{Total: int64(len(matched)), Page: q.Page, Limit: q.Limit, Books: []models.Book{}}
	start := q.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	page.Books = matched[start:end]
	return page, nil
}

// nulls sort last, as in Postgres ascending order
func lessDate(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.Before(*b)
}

func equalDates(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.LoanTx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
		if err != nil {
			tx.rollback()
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(tx)
}

func (s *Store) ListLoansByUser(_ context.Context, userID int64) ([]models.LoanWithBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := make([]models.LoanWithBook, 0)
	for _, l := range s.loans {
		if l.UserID != userID {
			continue
		}
		b := s.books[l.BookID]
		loans = append(loans, models.LoanWithBook{Loan: l, Title: b.Title, Author: b.Author})
	}
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].BorrowDate.Equal(loans[j].BorrowDate) {
			return loans[i].BorrowDate.After(loans[j].BorrowDate)
		}
		return loans[i].ID > loans[j].ID
	})
	return loans, nil
}

// memTx runs with s.mu held by WithinTx.
type memTx struct {
	s    *Store
	undo []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memTx) putBook(b models.Book) {
	prev := tx.s.books[b.ID]
	tx.s.books[b.ID] = b
	tx.undo = append(tx.undo, func() { tx.s.books[prev.ID] = prev })
}

func (tx *memTx) ReserveCopy(_ context.Context, bookID int64) error {
	b, ok := tx.s.books[bookID]
	if !ok {
		return store.ErrBookNotFound
	}
	if b.CopiesAvailable <= 0 {
		return store.ErrNoCopiesAvailable
	}
	b.CopiesAvailable--
	tx.putBook(b)
	return nil
}

func (tx *memTx) ReleaseCopy(_ context.Context, bookID int64) error {
	b, ok := tx.s.books[bookID]
	if !ok {
		return store.ErrBookNotFound
	}
	if b.CopiesAvailable >= b.CopiesTotal {
		return store.ErrInventoryInconsistent
	}
	b.CopiesAvailable++
	tx.putBook(b)
	return nil
}

func (tx *memTx) InsertLoan(_ context.Context, loan models.Loan) (models.Loan, error) {
	if _, ok := tx.s.users[loan.UserID]; !ok {
		return models.Loan{}, store.ErrUserNotFound
	}
	if _, ok := tx.s.books[loan.BookID]; !ok {
		return models.Loan{}, store.ErrBookNotFound
	}

	tx.s.nextLoanID++
	loan.ID = tx.s.nextLoanID
	tx.s.loans[loan.ID] = loan
	id := loan.ID
	tx.undo = append(tx.undo, func() { delete(tx.s.loans, id) })
	return loan, nil
}

func (tx *memTx) GetLoan(_ context.Context, id int64) (models.Loan, error) {
	l, ok := tx.s.loans[id]
	if !ok {
		return models.Loan{}, store.ErrLoanNotFound
	}
	return l, nil
}

func (tx *memTx) CloseLoan(_ context.Context, id int64, returnedAt time.Time) (models.Loan, error) {
	l, ok := tx.s.loans[id]
	if !ok {
		return models.Loan{}, store.ErrLoanNotFound
	}
	if l.Status != models.LoanActive {
		return models.Loan{}, store.ErrLoanAlreadyReturned
	}

	prev := l
	l.ReturnDate = &returnedAt
	l.Status = models.LoanReturned
	tx.s.loans[id] = l
	tx.undo = append(tx.undo, func() { tx.s.loans[id] = prev })
	return l, nil
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

func (s *Store) CountBooks(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.books)), nil
}

func (s *Store) SumCopies(context.Context) (store.CopyTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals store.CopyTotals
	for _, b := range s.books {
		totals.Total += int64(b.CopiesTotal)
		totals.Available += int64(b.CopiesAvailable)
	}
	return totals, nil
}

func (s *Store) CountActiveLoans(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, l := range s.loans {
		if l.Status == models.LoanActive {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountOverdueLoans(_ context.Context, now time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, l := range s.loans {
		if l.IsOverdue(now) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountUsers(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}
