package repository

import (
	"context"
	"database/sql"

	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/errors"
)

// Visit is one clinical encounter. Dates are ISO YYYY-MM-DD strings.
type Visit struct {
	ID         int64  `db:"id" json:"id"`
	PetID      int64  `db:"pet_id" json:"pet_id"`
	VisitDate  string `db:"visit_date" json:"visit_date"`
	DoctorName string `db:"doctor_name" json:"doctor_name"`
	Notes      string `db:"notes" json:"notes"`
}

// Reason is a dictionary entry for appointment reasons
type Reason struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// FutureAppointment is a follow-up booked during a visit. ReasonID is nil
// when no reason text was given.
type FutureAppointment struct {
	ID              int64  `db:"id" json:"id"`
	VisitID         int64  `db:"visit_id" json:"visit_id"`
	AppointmentDate string `db:"appointment_date" json:"appointment_date"`
	ReasonID        *int64 `db:"reason_id" json:"reason_id,omitempty"`
}

// UpcomingAppointment joins an appointment with its visit and reason for
// alerting.
type UpcomingAppointment struct {
	AppointmentID   int64   `db:"appointment_id" json:"appointment_id"`
	VisitID         int64   `db:"visit_id" json:"visit_id"`
	PetID           int64   `db:"pet_id" json:"pet_id"`
	AppointmentDate string  `db:"appointment_date" json:"appointment_date"`
	Reason          *string `db:"reason" json:"reason,omitempty"`
}

// VisitRepository handles visit, reason and appointment persistence
type VisitRepository struct {
	db *database.DB
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *database.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create inserts a visit and sets its ID
func (r *VisitRepository) Create(ctx context.Context, v *Visit) error {
	query := `
		INSERT INTO visits (pet_id, visit_date, doctor_name, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.db.QueryRowxContext(ctx, query,
		v.PetID, v.VisitDate, v.DoctorName, v.Notes,
	).Scan(&v.ID); err != nil {
		return errors.Storage(err)
	}
	return nil
}

// GetByID gets a visit by ID
func (r *VisitRepository) GetByID(ctx context.Context, id int64) (*Visit, error) {
	var visit Visit
	query := `SELECT * FROM visits WHERE id = $1`
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("visit")
		}
		return nil, errors.Storage(err)
	}
	return &visit, nil
}

// ListByPet lists a pet's visits, newest first
func (r *VisitRepository) ListByPet(ctx context.Context, petID int64) ([]*Visit, error) {
	var visits []*Visit
	query := `SELECT * FROM visits WHERE pet_id = $1 ORDER BY visit_date DESC, id DESC`
	if err := r.db.SelectContext(ctx, &visits, query, petID); err != nil {
		return nil, errors.Storage(err)
	}
	return visits, nil
}

// CountInRange counts visits whose date falls in [start, end] inclusive
func (r *VisitRepository) CountInRange(ctx context.Context, start, end string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM visits WHERE visit_date BETWEEN $1 AND $2`
	if err := r.db.GetContext(ctx, &count, query, start, end); err != nil {
		return 0, errors.Storage(err)
	}
	return count, nil
}

// GetOrCreateReason resolves reason text to a stable identifier. First
// writer wins on case-sensitive exact match: the insert is a no-op when
// the name already exists and the existing row's ID is returned.
func (r *VisitRepository) GetOrCreateReason(ctx context.Context, name string) (int64, error) {
	var id int64

	insert := `INSERT INTO reasons (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id`
	err := r.db.QueryRowxContext(ctx, insert, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.Storage(err)
	}

	query := `SELECT id FROM reasons WHERE name = $1`
	if err := r.db.GetContext(ctx, &id, query, name); err != nil {
		return 0, errors.Storage(err)
	}
	return id, nil
}

// ListReasons lists all reasons ordered by name
func (r *VisitRepository) ListReasons(ctx context.Context) ([]*Reason, error) {
	var reasons []*Reason
	query := `SELECT * FROM reasons ORDER BY name`
	if err := r.db.SelectContext(ctx, &reasons, query); err != nil {
		return nil, errors.Storage(err)
	}
	return reasons, nil
}

// CreateAppointment inserts a future appointment and sets its ID
func (r *VisitRepository) CreateAppointment(ctx context.Context, a *FutureAppointment) error {
	query := `
		INSERT INTO future_appointments (visit_id, appointment_date, reason_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := r.db.QueryRowxContext(ctx, query,
		a.VisitID, a.AppointmentDate, a.ReasonID,
	).Scan(&a.ID); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Storage(err)
	}
	return nil
}

// ListAppointmentsOn lists appointments falling exactly on the given ISO
// date, with visit and reason context joined for the alert payload.
func (r *VisitRepository) ListAppointmentsOn(ctx context.Context, date string) ([]*UpcomingAppointment, error) {
	var appts []*UpcomingAppointment
	query := `
		SELECT fa.id AS appointment_id, fa.visit_id, v.pet_id, fa.appointment_date, rs.name AS reason
		FROM future_appointments fa
		JOIN visits v ON fa.visit_id = v.id
		LEFT JOIN reasons rs ON fa.reason_id = rs.id
		WHERE fa.appointment_date = $1
		ORDER BY fa.id
	`
	if err := r.db.SelectContext(ctx, &appts, query, date); err != nil {
		return nil, errors.Storage(err)
	}
	return appts, nil
}

// ListAppointmentsByVisit lists the appointments booked during a visit
func (r *VisitRepository) ListAppointmentsByVisit(ctx context.Context, visitID int64) ([]*FutureAppointment, error) {
	var appts []*FutureAppointment
	query := `SELECT * FROM future_appointments WHERE visit_id = $1 ORDER BY appointment_date`
	if err := r.db.SelectContext(ctx, &appts, query, visitID); err != nil {
		return nil, errors.Storage(err)
	}
	return appts, nil
}
