package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arzan03/LibraryHub/internal/db"
	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

const loanColumns = `id, user_id, book_id, borrow_date, due_date, return_date, status`

func scanLoan(row scanner, extra ...any) (models.Loan, error) {
	var (
		l        models.Loan
		returned sql.NullTime
		status   string
	)
	dest := append([]any{&l.ID, &l.UserID, &l.BookID, &l.BorrowDate, &l.DueDate, &returned, &status}, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.Loan{}, err
	}
	if returned.Valid {
		t := returned.Time
		l.ReturnDate = &t
	}
	l.Status = models.LoanStatus(status)
	return l, nil
}

func (s *Store) ListLoansByUser(ctx context.Context, userID int64) ([]models.LoanWithBook, error) {
	rows, err := s.db.Query(ctx,
		`SELECT l.id, l.user_id, l.book_id, l.borrow_date, l.due_date, l.return_date, l.status, b.title, b.author
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 WHERE l.user_id = ?
		 ORDER BY l.borrow_date DESC, l.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	loans := make([]models.LoanWithBook, 0)
	for rows.Next() {
		var item models.LoanWithBook
		item.Loan, err = scanLoan(rows, &item.Title, &item.Author)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// sqlTx implements store.LoanTx on an open transaction.
type sqlTx struct {
	q db.Querier
}

func (t *sqlTx) ReserveCopy(ctx context.Context, bookID int64) error {
	res, err := t.q.Exec(ctx,
		`UPDATE books SET copies_available = copies_available - 1 WHERE id = ? AND copies_available > 0`, bookID)
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	return t.checkBookUpdate(ctx, res, bookID, store.ErrNoCopiesAvailable)
}

func (t *sqlTx) ReleaseCopy(ctx context.Context, bookID int64) error {
	res, err := t.q.Exec(ctx,
		`UPDATE books SET copies_available = copies_available + 1 WHERE id = ? AND copies_available < copies_total`, bookID)
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	return t.checkBookUpdate(ctx, res, bookID, store.ErrInventoryInconsistent)
}

// checkBookUpdate tells a missing book apart from a failed guard when a
// conditional update touched no row.
func (t *sqlTx) checkBookUpdate(ctx context.Context, res db.Result, bookID int64, guardErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	found, err := exists(ctx, t.q, tableBooks, bookID)
	if err != nil {
		return fmt.Errorf("check book: %w", err)
	}
	if !found {
		return store.ErrBookNotFound
	}
	return guardErr
}

// InsertLoan checks the borrower first: a failed statement aborts a Postgres
// transaction, so the foreign key cannot be the only guard.
func (t *sqlTx) InsertLoan(ctx context.Context, loan models.Loan) (models.Loan, error) {
	found, err := exists(ctx, t.q, tableUsers, loan.UserID)
	if err != nil {
		return models.Loan{}, fmt.Errorf("check user: %w", err)
	}
	if !found {
		return models.Loan{}, store.ErrUserNotFound
	}

	loan.BorrowDate = loan.BorrowDate.UTC()
	loan.DueDate = loan.DueDate.UTC()

	err = t.q.QueryRow(ctx,
		`INSERT INTO loans (user_id, book_id, borrow_date, due_date, status)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		loan.UserID, loan.BookID, loan.BorrowDate, loan.DueDate, string(loan.Status),
	).Scan(&loan.ID)
	if db.IsForeignKeyViolation(err) {
		return models.Loan{}, store.ErrUserNotFound
	}
	if err != nil {
		return models.Loan{}, fmt.Errorf("insert loan: %w", err)
	}
	return loan, nil
}

func (t *sqlTx) GetLoan(ctx context.Context, id int64) (models.Loan, error) {
	l, err := scanLoan(t.q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id))
	if errors.Is(err, db.ErrNoRows) {
		return models.Loan{}, store.ErrLoanNotFound
	}
	if err != nil {
		return models.Loan{}, fmt.Errorf("select loan: %w", err)
	}
	return l, nil
}

func (t *sqlTx) CloseLoan(ctx context.Context, id int64, returnedAt time.Time) (models.Loan, error) {
	res, err := t.q.Exec(ctx,
		`UPDATE loans SET status = ?, return_date = ? WHERE id = ? AND status = ?`,
		string(models.LoanReturned), returnedAt.UTC(), id, string(models.LoanActive))
	if err != nil {
		return models.Loan{}, fmt.Errorf("close loan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Loan{}, fmt.Errorf("rows affected: %w", err)
	}

	loan, err := t.GetLoan(ctx, id)
	if err != nil {
		return models.Loan{}, err
	}
	if n == 0 {
		return models.Loan{}, store.ErrLoanAlreadyReturned
	}
	return loan, nil
}
