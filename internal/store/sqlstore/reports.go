package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

func (s *Store) count(ctx context.Context, what, query string, args ...any) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", what, err)
	}
	return n, nil
}

func (s *Store) CountBooks(ctx context.Context) (int64, error) {
	return s.count(ctx, "books", `SELECT COUNT(*) FROM books`)
}

func (s *Store) SumCopies(ctx context.Context) (store.CopyTotals, error) {
	var totals store.CopyTotals
	err := s.db.QueryRow(ctx,
		`SELECT CAST(COALESCE(SUM(copies_total), 0) AS BIGINT), CAST(COALESCE(SUM(copies_available), 0) AS BIGINT) FROM books`,
	).Scan(&totals.Total, &totals.Available)
	if err != nil {
		return store.CopyTotals{}, fmt.Errorf("sum copies: %w", err)
	}
	return totals, nil
}

func (s *Store) CountActiveLoans(ctx context.Context) (int64, error) {
	return s.count(ctx, "active loans", `SELECT COUNT(*) FROM loans WHERE status = ?`, string(models.LoanActive))
}

func (s *Store) CountOverdueLoans(ctx context.Context, now time.Time) (int64, error) {
	return s.count(ctx, "overdue loans", `SELECT COUNT(*) FROM loans WHERE status = ? AND due_date < ?`,
		string(models.LoanActive), now.UTC())
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, "users", `SELECT COUNT(*) FROM users`)
}
