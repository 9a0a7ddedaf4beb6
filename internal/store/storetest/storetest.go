// Package storetest holds the behaviour every store.Store backend must share.
// Backends call Run from their own tests with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

// Factory returns an empty, migrated store. Cleanup is registered on t.
type Factory func(t *testing.T) store.Store

// Run executes the full suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Books", func(t *testing.T) { testBooks(t, newStore(t)) })
	t.Run("ListBooks", func(t *testing.T) { testListBooks(t, newStore(t)) })
	t.Run("BorrowAndReturn", func(t *testing.T) { testBorrowAndReturn(t, newStore(t)) })
	t.Run("BorrowWithoutCopies", func(t *testing.T) { testBorrowWithoutCopies(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, newStore(t)) })
	t.Run("RollbackOnPanic", func(t *testing.T) { testRollbackOnPanic(t, newStore(t)) })
	t.Run("ReleaseCopyBounds", func(t *testing.T) { testReleaseCopyBounds(t, newStore(t)) })
	t.Run("ListLoansByUser", func(t *testing.T) { testListLoansByUser(t, newStore(t)) })
	t.Run("BorrowByUnknownUser", func(t *testing.T) { testBorrowByUnknownUser(t, newStore(t)) })
	t.Run("ConcurrentReserve", func(t *testing.T) { testConcurrentReserve(t, newStore(t)) })
	t.Run("ConcurrentClose", func(t *testing.T) { testConcurrentClose(t, newStore(t)) })
	t.Run("Reports", func(t *testing.T) { testReports(t, newStore(t)) })
}

// Now is a millisecond-precision UTC timestamp every backend round-trips exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// GivenUser creates a student account with a unique email.
func GivenUser(t *testing.T, s store.Store, email string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.User{
		Email:     email,
		Password:  "$2a$10$hash",
		FirstName: "Test",
		LastName:  "Reader",
		Role:      models.RoleStudent,
		CreatedAt: Now(),
	})
	require.NoError(t, err, "create user")
	return u
}

// GivenBook creates a book with copies copies, all available.
func GivenBook(t *testing.T, s store.Store, title, author string, copies int) models.Book {
	t.Helper()
	b, err := s.CreateBook(context.Background(), models.Book{
		Title:           title,
		Author:          author,
		ISBN:            "978-0000000000",
		Category:        "fiction",
		CopiesTotal:     copies,
		CopiesAvailable: copies,
		CreatedAt:       Now(),
	})
	require.NoError(t, err, "create book")
	return b
}

// Borrow reserves a copy and inserts an active loan in one transaction.
func Borrow(ctx context.Context, s store.Store, userID, bookID int64, at time.Time) (models.Loan, error) {
	var loan models.Loan
	err := s.WithinTx(ctx, func(tx store.LoanTx) error {
		if err := tx.ReserveCopy(ctx, bookID); err != nil {
			return err
		}
		var err error
		loan, err = tx.InsertLoan(ctx, models.Loan{
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: at,
			DueDate:    at.Add(models.DefaultLoanPeriod),
			Status:     models.LoanActive,
		})
		return err
	})
	return loan, err
}

// Return closes the loan and releases its copy in one transaction.
func Return(ctx context.Context, s store.Store, loanID int64, at time.Time) (models.Loan, error) {
	var loan models.Loan
	err := s.WithinTx(ctx, func(tx store.LoanTx) error {
		var err error
		loan, err = tx.CloseLoan(ctx, loanID, at)
		if err != nil {
			return err
		}
		return tx.ReleaseCopy(ctx, loan.BookID)
	})
	return loan, err
}

func available(t *testing.T, s store.Store, bookID int64) int {
	t.Helper()
	b, err := s.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return b.CopiesAvailable
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	created := GivenUser(t, s, "Reader@Example.com")
	assert.NotZero(t, created.ID)
	assert.Equal(t, "reader@example.com", created.Email)

	_, err := s.CreateUser(ctx, models.User{Email: "READER@example.com", Password: "x", Role: models.RoleStudent, CreatedAt: Now()})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail, "emails are unique regardless of case")

	byEmail, err := s.GetUserByEmail(ctx, "reader@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, models.RoleStudent, byEmail.Role)
	assert.Equal(t, "Test", byEmail.FirstName)

	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	_, err = s.GetUserByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func testBooks(t *testing.T, s store.Store) {
	ctx := context.Background()

	published := time.Date(1949, 6, 8, 0, 0, 0, 0, time.UTC)
	created, err := s.CreateBook(ctx, models.Book{
		Title:           "1984",
		Author:          "George Orwell",
		ISBN:            "978-0451524935",
		Category:        "dystopia",
		CopiesTotal:     3,
		CopiesAvailable: 3,
		PublishedDate:   &published,
		CreatedAt:       Now(),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := s.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "1984", got.Title)
	assert.Equal(t, 3, got.CopiesTotal)
	assert.Equal(t, 3, got.CopiesAvailable)
	require.NotNil(t, got.PublishedDate)
	assert.Equal(t, "1949-06-08", got.PublishedDate.UTC().Format(time.DateOnly))

	require.NoError(t, s.SetCoverKey(ctx, created.ID, "covers/1/abc.png"))
	got, err = s.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "covers/1/abc.png", got.CoverKey)

	_, err = s.GetBook(ctx, created.ID+1000)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
	assert.ErrorIs(t, s.SetCoverKey(ctx, created.ID+1000, "x"), store.ErrBookNotFound)
}

func testListBooks(t *testing.T, s store.Store) {
	ctx := context.Background()

	GivenBook(t, s, "The Hobbit", "J.R.R. Tolkien", 2)
	GivenBook(t, s, "Animal Farm", "George Orwell", 1)
	GivenBook(t, s, "Homage to Catalonia", "George Orwell", 1)
	b, err := s.CreateBook(ctx, models.Book{Title: "Cosmos", Author: "Carl Sagan", Category: "science", CopiesTotal: 1, CopiesAvailable: 1, CreatedAt: Now()})
	require.NoError(t, err)

	page, err := s.ListBooks(ctx, models.BookQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	require.Len(t, page.Books, 4)
	assert.Equal(t, "Animal Farm", page.Books[0].Title, "default order is by title")

	page, err = s.ListBooks(ctx, models.BookQuery{Page: 1, Limit: 20, Search: "orwell"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total, "search matches author case-insensitively")

	page, err = s.ListBooks(ctx, models.BookQuery{Page: 1, Limit: 20, Search: "HOB"})
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "The Hobbit", page.Books[0].Title)

	page, err = s.ListBooks(ctx, models.BookQuery{Page: 1, Limit: 20, Category: "science"})
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, b.ID, page.Books[0].ID)

	page, err = s.ListBooks(ctx, models.BookQuery{Page: 2, Limit: 3, Sort: "author"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total, "total ignores paging")
	require.Len(t, page.Books, 1)
	assert.Equal(t, "The Hobbit", page.Books[0].Title, "Tolkien sorts last by author")

	_, err = s.ListBooks(ctx, models.BookQuery{Page: 1, Limit: 20, Sort: "title; DROP TABLE books"})
	assert.ErrorIs(t, err, store.ErrUnsupportedBookSorting)
}

func testBorrowAndReturn(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := GivenUser(t, s, "borrower@example.com")
	book := GivenBook(t, s, "Dune", "Frank Herbert", 3)
	at := Now()

	loan, err := Borrow(ctx, s, user.ID, book.ID, at)
	require.NoError(t, err)
	assert.NotZero(t, loan.ID)
	assert.Equal(t, models.LoanActive, loan.Status)
	assert.Nil(t, loan.ReturnDate)
	assert.WithinDuration(t, at.Add(14*24*time.Hour), loan.DueDate, time.Millisecond)
	assert.Equal(t, 2, available(t, s, book.ID))

	returnedAt := at.Add(time.Hour)
	returned, err := Return(ctx, s, loan.ID, returnedAt)
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.WithinDuration(t, returnedAt, *returned.ReturnDate, time.Millisecond)
	assert.Equal(t, book.ID, returned.BookID)
	assert.Equal(t, 3, available(t, s, book.ID))

	_, err = Return(ctx, s, loan.ID, returnedAt.Add(time.Hour))
	assert.ErrorIs(t, err, store.ErrLoanAlreadyReturned)
	assert.Equal(t, 3, available(t, s, book.ID), "second return must not restore twice")

	_, err = Return(ctx, s, loan.ID+1000, returnedAt)
	assert.ErrorIs(t, err, store.ErrLoanNotFound)

	_, err = Borrow(ctx, s, user.ID, book.ID+1000, at)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func testBorrowWithoutCopies(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := GivenUser(t, s, "late@example.com")
	book := GivenBook(t, s, "Out of Print", "Nobody", 0)

	_, err := Borrow(ctx, s, user.ID, book.ID, Now())
	assert.ErrorIs(t, err, store.ErrNoCopiesAvailable)
	assert.Equal(t, 0, available(t, s, book.ID))

	loans, err := s.ListLoansByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, loans, "a rejected borrow leaves no loan behind")
}

func testRollbackOnError(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := GivenUser(t, s, "rollback@example.com")
	book := GivenBook(t, s, "Rollback", "Author", 1)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx store.LoanTx) error {
		if err := tx.ReserveCopy(ctx, book.ID); err != nil {
			return err
		}
		if _, err := tx.InsertLoan(ctx, models.Loan{
			UserID: user.ID, BookID: book.ID, BorrowDate: Now(), DueDate: Now().Add(models.DefaultLoanPeriod), Status: models.LoanActive,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, available(t, s, book.ID))

	loans, err := s.ListLoansByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func testRollbackOnPanic(t *testing.T, s store.Store) {
	ctx := context.Background()
	book := GivenBook(t, s, "Panic", "Author", 1)

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(tx store.LoanTx) error {
			if err := tx.ReserveCopy(ctx, book.ID); err != nil {
				return err
			}
			panic("handler blew up")
		})
	})
	assert.Equal(t, 1, available(t, s, book.ID))
}

func testReleaseCopyBounds(t *testing.T, s store.Store) {
	ctx := context.Background()
	book := GivenBook(t, s, "Full Shelf", "Author", 2)

	err := s.WithinTx(ctx, func(tx store.LoanTx) error {
		return tx.ReleaseCopy(ctx, book.ID)
	})
	assert.ErrorIs(t, err, store.ErrInventoryInconsistent, "availability never exceeds copies_total")
	assert.Equal(t, 2, available(t, s, book.ID))

	err = s.WithinTx(ctx, func(tx store.LoanTx) error {
		return tx.ReleaseCopy(ctx, book.ID+1000)
	})
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func testListLoansByUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := GivenUser(t, s, "alice@example.com")
	bob := GivenUser(t, s, "bob@example.com")
	first := GivenBook(t, s, "First", "Author A", 1)
	second := GivenBook(t, s, "Second", "Author B", 1)
	at := Now()

	older, err := Borrow(ctx, s, alice.ID, first.ID, at.Add(-48*time.Hour))
	require.NoError(t, err)
	newer, err := Borrow(ctx, s, alice.ID, second.ID, at)
	require.NoError(t, err)

	loans, err := s.ListLoansByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, newer.ID, loans[0].ID, "most recent first")
	assert.Equal(t, "Second", loans[0].Title)
	assert.Equal(t, "Author B", loans[0].Author)
	assert.Equal(t, older.ID, loans[1].ID)
	assert.Equal(t, "First", loans[1].Title)

	loans, err = s.ListLoansByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func testConcurrentReserve(t *testing.T, s store.Store) {
	const attempts = 8
	ctx := context.Background()
	book := GivenBook(t, s, "Last Copy", "Author", 1)
	users := make([]models.User, attempts)
	for i := range users {
		users[i] = GivenUser(t, s, fmt.Sprintf("racer%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Borrow(ctx, s, users[i].ID, book.ID, Now())
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, store.ErrNoCopiesAvailable)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 0, available(t, s, book.ID))
}

func testBorrowByUnknownUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	book := GivenBook(t, s, "Orphan", "Author", 2)

	_, err := Borrow(ctx, s, 999, book.ID, Now())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.Equal(t, 2, available(t, s, book.ID), "reservation rolled back")

	loans, err := s.ListLoansByUser(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func testConcurrentClose(t *testing.T, s store.Store) {
	const attempts = 8
	ctx := context.Background()
	user := GivenUser(t, s, "returner@example.com")
	book := GivenBook(t, s, "Returned Once", "Author", 2)
	loan, err := Borrow(ctx, s, user.ID, book.ID, Now())
	require.NoError(t, err)
	require.Equal(t, 1, available(t, s, book.ID))

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Return(ctx, s, loan.ID, Now())
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, store.ErrLoanAlreadyReturned)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, available(t, s, book.ID))
}

func testReports(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := GivenUser(t, s, "stats@example.com")
	GivenUser(t, s, "stats2@example.com")
	a := GivenBook(t, s, "A", "X", 2)
	b := GivenBook(t, s, "B", "Y", 3)
	now := Now()

	_, err := Borrow(ctx, s, user.ID, a.ID, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	returned, err := Borrow(ctx, s, user.ID, b.ID, now.Add(-20*24*time.Hour))
	require.NoError(t, err)
	_, err = Return(ctx, s, returned.ID, now)
	require.NoError(t, err)
	_, err = Borrow(ctx, s, user.ID, b.ID, now)
	require.NoError(t, err)

	books, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), books)

	copies, err := s.SumCopies(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.CopyTotals{Total: 5, Available: 3}, copies)

	active, err := s.CountActiveLoans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	overdue, err := s.CountOverdueLoans(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overdue)

	users, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), users)
}
