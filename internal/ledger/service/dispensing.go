package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/internal/ledger/events"
	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/errors"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/messaging"
)

// LineSource names where a prescription line is sourced from: a catalog
// batch (BatchID set) or an externally supplied medication (MedName set).
// Exactly one must be set.
type LineSource struct {
	BatchID *int64
	MedName string
}

// FromBatch builds a stock-backed line source
func FromBatch(batchID int64) LineSource {
	return LineSource{BatchID: &batchID}
}

// External builds an externally sourced line source
func External(medName string) LineSource {
	return LineSource{MedName: medName}
}

// AppointmentEntry is one follow-up booked during a visit. Empty reason
// text stores a null reason.
type AppointmentEntry struct {
	Date       string
	ReasonText string
}

// DispensingService is the transactional heart of the ledger: it commits
// visits, their future appointments, and their prescription lines. Each
// prescription line is its own unit of work; a failed line never rolls
// back lines already committed for the same visit.
type DispensingService struct {
	db           *database.DB
	visitRepo    *repository.VisitRepository
	batchRepo    *repository.BatchRepository
	dispenseRepo *repository.DispenseRepository
	publisher    *events.LedgerEventPublisher
	logger       *logger.Logger
}

// NewDispensingService creates a new dispensing service
func NewDispensingService(
	db *database.DB,
	visitRepo *repository.VisitRepository,
	batchRepo *repository.BatchRepository,
	dispenseRepo *repository.DispenseRepository,
	publisher *events.LedgerEventPublisher,
	log *logger.Logger,
) *DispensingService {
	return &DispensingService{
		db:           db,
		visitRepo:    visitRepo,
		batchRepo:    batchRepo,
		dispenseRepo: dispenseRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// CommitVisit validates the required visit fields and inserts the visit.
// Validation happens before any write; a failure has no side effect.
func (s *DispensingService) CommitVisit(ctx context.Context, v *repository.Visit) error {
	details := make(map[string]string)
	if v.PetID <= 0 {
		details["pet_id"] = "this field is required"
	}
	if strings.TrimSpace(v.VisitDate) == "" {
		details["visit_date"] = "this field is required"
	}
	if strings.TrimSpace(v.DoctorName) == "" {
		details["doctor_name"] = "this field is required"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}

	if err := s.visitRepo.Create(ctx, v); err != nil {
		return err
	}

	s.logger.Info().Int64("visit_id", v.ID).Int64("pet_id", v.PetID).Msg("visit committed")
	return nil
}

// GetVisit gets a visit by ID
func (s *DispensingService) GetVisit(ctx context.Context, id int64) (*repository.Visit, error) {
	return s.visitRepo.GetByID(ctx, id)
}

// ListVisitsByPet lists a pet's visit history, newest first
func (s *DispensingService) ListVisitsByPet(ctx context.Context, petID int64) ([]*repository.Visit, error) {
	return s.visitRepo.ListByPet(ctx, petID)
}

// CommitFutureAppointments resolves each entry's reason text through
// get-or-create and inserts the appointment. Empty reason text stores a
// null reason.
func (s *DispensingService) CommitFutureAppointments(ctx context.Context, visitID int64, entries []AppointmentEntry) ([]*repository.FutureAppointment, error) {
	if _, err := s.visitRepo.GetByID(ctx, visitID); err != nil {
		return nil, err
	}

	appts := make([]*repository.FutureAppointment, 0, len(entries))
	for _, entry := range entries {
		var reasonID *int64
		if text := strings.TrimSpace(entry.ReasonText); text != "" {
			id, err := s.visitRepo.GetOrCreateReason(ctx, text)
			if err != nil {
				return appts, err
			}
			reasonID = &id
		}

		appt := &repository.FutureAppointment{
			VisitID:         visitID,
			AppointmentDate: entry.Date,
			ReasonID:        reasonID,
		}
		if err := s.visitRepo.CreateAppointment(ctx, appt); err != nil {
			return appts, err
		}
		appts = append(appts, appt)
	}

	return appts, nil
}

// ListAppointments lists the follow-ups booked during a visit
func (s *DispensingService) ListAppointments(ctx context.Context, visitID int64) ([]*repository.FutureAppointment, error) {
	if _, err := s.visitRepo.GetByID(ctx, visitID); err != nil {
		return nil, err
	}
	return s.visitRepo.ListAppointmentsByVisit(ctx, visitID)
}

// ListReasons lists the reason dictionary, for pre-filling reason pickers
func (s *DispensingService) ListReasons(ctx context.Context) ([]*repository.Reason, error) {
	return s.visitRepo.ListReasons(ctx)
}

// CommitPrescriptionLine commits one prescription line. Stock-backed
// lines lock the batch row, re-check availability, decrement and insert
// the dispense record in one transaction; InsufficientStock aborts the
// line with the batch untouched. External lines insert the record only.
// The stored unit price is exactly the supplied one, which may differ
// from the batch's default sell price.
func (s *DispensingService) CommitPrescriptionLine(ctx context.Context, visitID int64, source LineSource, quantity int, unitPrice decimal.Decimal) (*repository.DispenseRecord, error) {
	if quantity <= 0 {
		return nil, errors.Validation(map[string]string{
			"quantity": "must be greater than 0",
		})
	}
	if unitPrice.IsNegative() {
		return nil, errors.Validation(map[string]string{
			"unit_price": "must be at least 0",
		})
	}
	if (source.BatchID == nil) == (source.MedName == "") {
		return nil, errors.Validation(map[string]string{
			"source": "exactly one of batch_id or med_name must be set",
		})
	}

	if _, err := s.visitRepo.GetByID(ctx, visitID); err != nil {
		return nil, err
	}

	if source.BatchID == nil {
		return s.commitExternalLine(ctx, visitID, source.MedName, quantity, unitPrice)
	}
	return s.commitStockLine(ctx, visitID, *source.BatchID, quantity, unitPrice)
}

// commitStockLine is one unit of work: row lock, availability check,
// decrement, record insert. A batch reaching zero is retained.
func (s *DispensingService) commitStockLine(ctx context.Context, visitID, batchID int64, quantity int, unitPrice decimal.Decimal) (*repository.DispenseRecord, error) {
	rec := &repository.DispenseRecord{
		VisitID:   visitID,
		BatchID:   &batchID,
		FromStock: true,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}

	var remaining int
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		batch, err := s.batchRepo.GetForUpdate(ctx, tx, batchID)
		if err != nil {
			return err
		}

		if quantity > batch.Quantity {
			return errors.InsufficientStock(batchID, quantity, batch.Quantity)
		}

		if err := s.batchRepo.Decrement(ctx, tx, batchID, quantity); err != nil {
			return err
		}
		remaining = batch.Quantity - quantity

		return s.dispenseRepo.CreateTx(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("visit_id", visitID).
		Int64("batch_id", batchID).
		Int("quantity", quantity).
		Int("remaining", remaining).
		Msg("stock line dispensed")

	s.publisher.PublishStockDispensed(ctx, messaging.StockDispensedEvent{
		DispenseID:  rec.ID,
		VisitID:     visitID,
		BatchID:     batchID,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		NewQuantity: remaining,
	})

	return rec, nil
}

func (s *DispensingService) commitExternalLine(ctx context.Context, visitID int64, medName string, quantity int, unitPrice decimal.Decimal) (*repository.DispenseRecord, error) {
	rec := &repository.DispenseRecord{
		VisitID:   visitID,
		MedName:   &medName,
		FromStock: false,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}

	if err := s.dispenseRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("visit_id", visitID).
		Str("med_name", medName).
		Int("quantity", quantity).
		Msg("external line dispensed")

	return rec, nil
}

// ListPrescriptions lists a visit's dispense trail
func (s *DispensingService) ListPrescriptions(ctx context.Context, visitID int64) ([]*repository.VisitDispenseLine, error) {
	if _, err := s.visitRepo.GetByID(ctx, visitID); err != nil {
		return nil, err
	}
	return s.dispenseRepo.ListByVisit(ctx, visitID)
}
