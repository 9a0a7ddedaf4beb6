// Package store declares the persistence ports used by the services and the
// errors every backend reports through them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/arzan03/LibraryHub/internal/models"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrDuplicateEmail         = errors.New("user already exists")
	ErrBookNotFound           = errors.New("book not found")
	ErrNoCopiesAvailable      = errors.New("no copies available")
	ErrLoanNotFound           = errors.New("loan not found")
	ErrLoanAlreadyReturned    = errors.New("loan already returned")
	ErrInventoryInconsistent  = errors.New("book inventory is inconsistent")
	ErrUnsupportedBookSorting = errors.New("unsupported sort column")
)

type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

type BookStore interface {
	CreateBook(ctx context.Context, book models.Book) (models.Book, error)
	GetBook(ctx context.Context, id int64) (models.Book, error)
	ListBooks(ctx context.Context, query models.BookQuery) (models.BookPage, error)
	SetCoverKey(ctx context.Context, id int64, key string) error
}

// LoanTx is the set of loan operations that run inside one transaction.
type LoanTx interface {
	// ReserveCopy decrements copies_available only while it is above zero.
	ReserveCopy(ctx context.Context, bookID int64) error
	InsertLoan(ctx context.Context, loan models.Loan) (models.Loan, error)
	GetLoan(ctx context.Context, id int64) (models.Loan, error)
	// CloseLoan moves an active loan to returned; a returned loan is left untouched.
	CloseLoan(ctx context.Context, id int64, returnedAt time.Time) (models.Loan, error)
	// ReleaseCopy increments copies_available only while it is below copies_total.
	ReleaseCopy(ctx context.Context, bookID int64) error
}

type LoanStore interface {
	// WithinTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back on any error or panic.
	WithinTx(ctx context.Context, fn func(tx LoanTx) error) error
	ListLoansByUser(ctx context.Context, userID int64) ([]models.LoanWithBook, error)
}

type CopyTotals struct {
	Total     int64
	Available int64
}

type ReportStore interface {
	CountBooks(ctx context.Context) (int64, error)
	SumCopies(ctx context.Context) (CopyTotals, error)
	CountActiveLoans(ctx context.Context) (int64, error)
	CountOverdueLoans(ctx context.Context, now time.Time) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
}

// Store is a complete backend.
type Store interface {
	UserStore
	BookStore
	LoanStore
	ReportStore
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
