package services

import (
	"context"
	"time"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/clock"
	"pickpoint/internal/repository"
)

type RevenueReport struct {
	LocationID string    `json:"locationId,omitempty"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	repository.RevenueSummary
	FormattedTotal string `json:"formattedTotal"`
}

type ReportService interface {
	Revenue(ctx context.Context, filter repository.RevenueFilter) (*RevenueReport, error)
}

type reportService struct {
	packages repository.PackageRepository
	clock    clock.Clock
}

func NewReportService(packages repository.PackageRepository, clk clock.Clock) ReportService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &reportService{packages: packages, clock: clk}
}

// Revenue sums collected fees over [From, To). A zero range defaults to the
// current WIB month so far.
func (s *reportService) Revenue(ctx context.Context, filter repository.RevenueFilter) (*RevenueReport, error) {
	now := s.clock.Now()
	if filter.To.IsZero() {
		filter.To = now
	}
	if filter.From.IsZero() {
		local := filter.To.In(jakarta)
		filter.From = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, jakarta).UTC()
	}
	if !filter.From.Before(filter.To) {
		return nil, apperrors.Validation("from must be before to")
	}

	summary, err := s.packages.SumRevenue(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &RevenueReport{
		LocationID:     filter.LocationID,
		From:           filter.From,
		To:             filter.To,
		RevenueSummary: *summary,
		FormattedTotal: FormatRupiah(summary.FeeTotal),
	}, nil
}
