package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/internal/ledger/events"
	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/errors"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/messaging"
)

// PurchasingService keeps the acquisition cost book. Recording a purchase
// appends to the cost trail only; batch quantities are adjusted through
// intake, never here.
type PurchasingService struct {
	purchaseRepo *repository.PurchaseRepository
	batchRepo    *repository.BatchRepository
	publisher    *events.LedgerEventPublisher
	logger       *logger.Logger
}

// NewPurchasingService creates a new purchasing service
func NewPurchasingService(
	purchaseRepo *repository.PurchaseRepository,
	batchRepo *repository.BatchRepository,
	publisher *events.LedgerEventPublisher,
	log *logger.Logger,
) *PurchasingService {
	return &PurchasingService{
		purchaseRepo: purchaseRepo,
		batchRepo:    batchRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// RecordPurchase appends an acquisition cost event against an existing
// batch. Total cost is computed server-side as quantity * unit cost and
// stored denormalized with the record.
func (s *PurchasingService) RecordPurchase(ctx context.Context, batchID int64, purchaseDate string, quantity int, unitCost decimal.Decimal) (*repository.PurchaseRecord, error) {
	details := make(map[string]string)
	if quantity <= 0 {
		details["quantity"] = "must be greater than 0"
	}
	if unitCost.IsNegative() {
		details["unit_cost"] = "must be at least 0"
	}
	if _, err := time.Parse("2006-01-02", purchaseDate); err != nil {
		details["purchase_date"] = "must be a date in YYYY-MM-DD format"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}

	rec := &repository.PurchaseRecord{
		BatchID:      batchID,
		PurchaseDate: purchaseDate,
		Quantity:     quantity,
		UnitCost:     unitCost,
		TotalCost:    unitCost.Mul(decimal.NewFromInt(int64(quantity))),
	}

	if err := s.purchaseRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("purchase_id", rec.ID).
		Int64("batch_id", batchID).
		Int("quantity", quantity).
		Str("total_cost", rec.TotalCost.String()).
		Msg("purchase recorded")

	s.publisher.PublishPurchaseRecorded(ctx, messaging.PurchaseRecordedEvent{
		PurchaseID:   rec.ID,
		BatchID:      batchID,
		PurchaseDate: purchaseDate,
		Quantity:     quantity,
		TotalCost:    rec.TotalCost,
	})

	return rec, nil
}

// ListPurchases lists the cost trail for a batch, oldest first
func (s *PurchasingService) ListPurchases(ctx context.Context, batchID int64) ([]*repository.PurchaseRecord, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.purchaseRepo.ListByBatch(ctx, batchID)
}
