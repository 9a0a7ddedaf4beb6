package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/services"
	"github.com/arzan03/LibraryHub/internal/store"
	"github.com/arzan03/LibraryHub/internal/store/memstore"
	"github.com/arzan03/LibraryHub/internal/store/storetest"
)

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	clock := newClock()
	loans := services.NewLoanService(s, services.WithClock(clock.Now))
	a := storetest.GivenBook(t, s, "A", "X", 2)
	b := storetest.GivenBook(t, s, "B", "Y", 3)

	_, err := loans.Borrow(ctx, student, a.ID)
	require.NoError(t, err)
	_, err = loans.Borrow(ctx, student, b.ID)
	require.NoError(t, err)
	clock.Advance(20 * 24 * time.Hour)
	_, err = loans.Borrow(ctx, librarian, b.ID)
	require.NoError(t, err)

	reports := services.NewReportService(s)
	sum, err := reports.Summary(ctx, librarian)
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.Titles)
	assert.Equal(t, int64(5), sum.CopiesTotal)
	assert.Equal(t, int64(2), sum.CopiesAvailable)
	assert.Equal(t, int64(3), sum.CopiesOnLoan)
	assert.Equal(t, int64(3), sum.ActiveLoans)
	assert.Equal(t, int64(3), sum.Users)
	assert.False(t, sum.GeneratedAt.IsZero())
}

func TestSummaryCountsOverdueAtRequestTime(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	past := time.Now().Add(-30 * 24 * time.Hour)
	loans := services.NewLoanService(s, services.WithClock(func() time.Time { return past }))
	book := storetest.GivenBook(t, s, "Late", "X", 1)
	_, err := loans.Borrow(ctx, student, book.ID)
	require.NoError(t, err)

	sum, err := services.NewReportService(s).Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.OverdueLoans)
}

func TestSummaryRequiresStaff(t *testing.T) {
	_, err := services.NewReportService(memstore.New()).Summary(context.Background(), student)
	assert.ErrorIs(t, err, policy.ErrForbidden)
}

type failingReports struct {
	store.ReportStore
	err error
}

func (f failingReports) CountUsers(context.Context) (int64, error) { return 0, f.err }

func TestSummaryPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("database gone")
	svc := services.NewReportService(failingReports{ReportStore: memstore.New(), err: boom})

	_, err := svc.Summary(context.Background(), admin)
	assert.ErrorIs(t, err, boom)
}
