package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/errors"
	"github.com/curevet/ledger-backend/pkg/logger"
)

// Summary is the accounting view over a date range. Revenue comes from
// dispense snapshots, cost from the purchase book; profit is their
// difference, so external lines contribute revenue with no matching cost.
type Summary struct {
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	Appointments int64           `json:"appointments"`
}

// ReportService computes range aggregates over the ledger
type ReportService struct {
	dispenseRepo *repository.DispenseRepository
	purchaseRepo *repository.PurchaseRepository
	visitRepo    *repository.VisitRepository
	logger       *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(
	dispenseRepo *repository.DispenseRepository,
	purchaseRepo *repository.PurchaseRepository,
	visitRepo *repository.VisitRepository,
	log *logger.Logger,
) *ReportService {
	return &ReportService{
		dispenseRepo: dispenseRepo,
		purchaseRepo: purchaseRepo,
		visitRepo:    visitRepo,
		logger:       log,
	}
}

func validateRange(start, end string) error {
	details := make(map[string]string)
	if _, err := time.Parse("2006-01-02", start); err != nil {
		details["start_date"] = "must be a date in YYYY-MM-DD format"
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		details["end_date"] = "must be a date in YYYY-MM-DD format"
	}
	if len(details) == 0 && start > end {
		details["end_date"] = "must not be before start_date"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// RevenueInRange sums dispense revenue over [start, end] inclusive
func (s *ReportService) RevenueInRange(ctx context.Context, start, end string) (decimal.Decimal, error) {
	if err := validateRange(start, end); err != nil {
		return decimal.Zero, err
	}
	return s.dispenseRepo.RevenueInRange(ctx, start, end)
}

// CostInRange sums purchase cost over [start, end] inclusive
func (s *ReportService) CostInRange(ctx context.Context, start, end string) (decimal.Decimal, error) {
	if err := validateRange(start, end); err != nil {
		return decimal.Zero, err
	}
	return s.purchaseRepo.CostInRange(ctx, start, end)
}

// AppointmentCount counts visits over [start, end] inclusive
func (s *ReportService) AppointmentCount(ctx context.Context, start, end string) (int64, error) {
	if err := validateRange(start, end); err != nil {
		return 0, err
	}
	return s.visitRepo.CountInRange(ctx, start, end)
}

// Summarize builds the combined revenue/cost/profit/appointments view for
// a range.
func (s *ReportService) Summarize(ctx context.Context, start, end string) (*Summary, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	revenue, err := s.dispenseRepo.RevenueInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	cost, err := s.purchaseRepo.CostInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	visits, err := s.visitRepo.CountInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	return &Summary{
		StartDate:    start,
		EndDate:      end,
		Revenue:      revenue,
		Cost:         cost,
		Profit:       revenue.Sub(cost),
		Appointments: visits,
	}, nil
}
