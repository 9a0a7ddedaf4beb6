package services

import (
	"context"
	"time"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/store"
)

// LoanService moves books between the shelf and borrowers. Every state change
// runs in one store transaction: the copy count and the loan row change
// together or not at all.
type LoanService struct {
	loans  store.LoanStore
	now    func() time.Time
	period time.Duration
}

type LoanOption func(*LoanService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LoanOption {
	return func(s *LoanService) { s.now = now }
}

// WithLoanPeriod sets the borrowing window. Non-positive values are ignored.
func WithLoanPeriod(d time.Duration) LoanOption {
	return func(s *LoanService) {
		if d > 0 {
			s.period = d
		}
	}
}

// NewLoanService builds the loan engine with a 14-day period unless overridden.
func NewLoanService(loans store.LoanStore, opts ...LoanOption) *LoanService {
	s := &LoanService{
		loans:  loans,
		now:    time.Now,
		period: models.DefaultLoanPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Borrow takes one copy of the book for the caller.
func (s *LoanService) Borrow(ctx context.Context, who models.Identity, bookID int64) (models.Loan, error) {
	if bookID <= 0 {
		return models.Loan{}, invalid("book_id must be a positive integer")
	}

	now := s.now().UTC()
	var loan models.Loan
	err := s.loans.WithinTx(ctx, func(tx store.LoanTx) error {
		if err := tx.ReserveCopy(ctx, bookID); err != nil {
			return err
		}
		var err error
		loan, err = tx.InsertLoan(ctx, models.Loan{
			UserID:     who.ID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    now.Add(s.period),
			Status:     models.LoanActive,
		})
		return err
	})
	if err != nil {
		return models.Loan{}, err
	}
	return loan, nil
}

// Return closes an active loan and puts its copy back on the shelf. Only the
// borrower or staff may return a loan; anyone else sees it as missing.
func (s *LoanService) Return(ctx context.Context, who models.Identity, loanID int64) (models.Loan, error) {
	if loanID <= 0 {
		return models.Loan{}, invalid("loan id must be a positive integer")
	}

	now := s.now().UTC()
	var loan models.Loan
	err := s.loans.WithinTx(ctx, func(tx store.LoanTx) error {
		current, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if current.UserID != who.ID && !policy.ManageLoans.Allows(who) {
			return store.ErrLoanNotFound
		}

		loan, err = tx.CloseLoan(ctx, loanID, now)
		if err != nil {
			return err
		}
		return tx.ReleaseCopy(ctx, loan.BookID)
	})
	if err != nil {
		return models.Loan{}, err
	}
	return loan, nil
}

// List returns the caller's loans, newest first, flagged when overdue.
func (s *LoanService) List(ctx context.Context, who models.Identity) ([]models.LoanWithBook, error) {
	loans, err := s.loans.ListLoansByUser(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range loans {
		loans[i].Overdue = loans[i].IsOverdue(now)
	}
	return loans, nil
}
