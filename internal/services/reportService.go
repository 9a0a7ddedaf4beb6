package services

import (
	"context"
	"fmt"
	"time"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/store"
	"github.com/arzan03/LibraryHub/internal/utils"
)

// Summary is a point-in-time view of the collection and its circulation.
type Summary struct {
	Titles          int64     `json:"titles"`
	CopiesTotal     int64     `json:"copies_total"`
	CopiesAvailable int64     `json:"copies_available"`
	CopiesOnLoan    int64     `json:"copies_on_loan"`
	ActiveLoans     int64     `json:"active_loans"`
	OverdueLoans    int64     `json:"overdue_loans"`
	Users           int64     `json:"users"`
	GeneratedAt     time.Time `json:"generated_at"`
}

type ReportService struct {
	reports store.ReportStore
	now     func() time.Time
}

// NewReportService builds the circulation report service.
func NewReportService(reports store.ReportStore) *ReportService {
	return &ReportService{reports: reports, now: time.Now}
}

// Summary gathers the circulation counts concurrently. Staff only.
func (s *ReportService) Summary(ctx context.Context, who models.Identity) (Summary, error) {
	if err := policy.ViewReports.Check(who); err != nil {
		return Summary{}, err
	}

	now := s.now().UTC()
	sum := Summary{GeneratedAt: now}
	var copies store.CopyTotals

	err := utils.RunParallelTasks(ctx,
		func(ctx context.Context) (err error) {
			sum.Titles, err = s.reports.CountBooks(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			copies, err = s.reports.SumCopies(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			sum.ActiveLoans, err = s.reports.CountActiveLoans(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			sum.OverdueLoans, err = s.reports.CountOverdueLoans(ctx, now)
			return err
		},
		func(ctx context.Context) (err error) {
			sum.Users, err = s.reports.CountUsers(ctx)
			return err
		},
	)
	if err != nil {
		return Summary{}, fmt.Errorf("build summary: %w", err)
	}

	sum.CopiesTotal = copies.Total
	sum.CopiesAvailable = copies.Available
	sum.CopiesOnLoan = copies.Total - copies.Available
	return sum, nil
}
