package service

import (
	"context"
	"fmt"
	"time"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/config"
	"github.com/curevet/ledger-backend/pkg/logger"
)

// Alert categories
const (
	AlertExpiry   = "expiry"
	AlertReorder  = "reorder"
	AlertTomorrow = "tomorrow"
	AlertDayAfter = "day_after"
)

// Alert is one condition surfaced by a scan. Alerts are stateless: the
// same condition is reported again on every scan until it clears.
type Alert struct {
	Category string `json:"category"`
	Subject  string `json:"subject"`
	Detail   string `json:"detail"`
}

// AlertEngine evaluates the alert conditions against current state. It
// holds no state between scans and performs no deduplication.
type AlertEngine struct {
	batchRepo *repository.BatchRepository
	visitRepo *repository.VisitRepository
	cfg       config.AlertsConfig
	logger    *logger.Logger
}

// NewAlertEngine creates a new alert engine
func NewAlertEngine(
	batchRepo *repository.BatchRepository,
	visitRepo *repository.VisitRepository,
	cfg config.AlertsConfig,
	log *logger.Logger,
) *AlertEngine {
	return &AlertEngine{
		batchRepo: batchRepo,
		visitRepo: visitRepo,
		cfg:       cfg,
		logger:    log,
	}
}

// Fetch runs one scan as of the given day and returns every active
// condition: batches expiring within the configured window, batches at or
// below reorder level, and appointments falling tomorrow or the day
// after. Disabled categories are skipped entirely.
func (e *AlertEngine) Fetch(ctx context.Context, today time.Time) ([]Alert, error) {
	alerts := make([]Alert, 0)

	if e.cfg.ExpiryWindowDays > 0 {
		expiry, err := e.scanExpiry(ctx, today)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, expiry...)
	}

	if e.cfg.ReorderEnabled {
		reorder, err := e.scanReorder(ctx)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, reorder...)
	}

	if e.cfg.AppointmentsEnabled {
		appts, err := e.scanAppointments(ctx, today)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, appts...)
	}

	return alerts, nil
}

func (e *AlertEngine) scanExpiry(ctx context.Context, today time.Time) ([]Alert, error) {
	cutoff := today.AddDate(0, 0, e.cfg.ExpiryWindowDays).Format("2006-01-02")

	batches, err := e.batchRepo.ListExpiring(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(batches))
	for _, b := range batches {
		alerts = append(alerts, Alert{
			Category: AlertExpiry,
			Subject:  b.Name,
			Detail:   fmt.Sprintf("batch %d expires %s (%d %s on hand)", b.ID, b.ExpirationDate, b.Quantity, b.Unit),
		})
	}
	return alerts, nil
}

func (e *AlertEngine) scanReorder(ctx context.Context) ([]Alert, error) {
	batches, err := e.batchRepo.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(batches))
	for _, b := range batches {
		alerts = append(alerts, Alert{
			Category: AlertReorder,
			Subject:  b.Name,
			Detail:   fmt.Sprintf("batch %d at %d %s, reorder level %d", b.ID, b.Quantity, b.Unit, b.ReorderLevel),
		})
	}
	return alerts, nil
}

func (e *AlertEngine) scanAppointments(ctx context.Context, today time.Time) ([]Alert, error) {
	offsets := []struct {
		days     int
		category string
	}{
		{1, AlertTomorrow},
		{2, AlertDayAfter},
	}

	var alerts []Alert
	for _, off := range offsets {
		date := today.AddDate(0, 0, off.days).Format("2006-01-02")

		appts, err := e.visitRepo.ListAppointmentsOn(ctx, date)
		if err != nil {
			return nil, err
		}

		for _, a := range appts {
			reason := "no reason given"
			if a.Reason != nil {
				reason = *a.Reason
			}
			alerts = append(alerts, Alert{
				Category: off.category,
				Subject:  fmt.Sprintf("pet %d", a.PetID),
				Detail:   fmt.Sprintf("appointment on %s: %s", a.AppointmentDate, reason),
			})
		}
	}
	return alerts, nil
}
