package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/errors"
)

// DispenseRecord is one immutable ledger entry linking a visit to either
// consumed stock (BatchID set, FromStock true) or an externally sourced
// medication (MedName set). UnitPrice is a point-in-time snapshot.
type DispenseRecord struct {
	ID        int64           `db:"id" json:"id"`
	VisitID   int64           `db:"visit_id" json:"visit_id"`
	BatchID   *int64          `db:"batch_id" json:"batch_id,omitempty"`
	MedName   *string         `db:"med_name" json:"med_name,omitempty"`
	FromStock bool            `db:"from_stock" json:"from_stock"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// VisitDispenseLine is a dispense record with the batch's item name joined
// for display. ItemName is nil for external lines.
type VisitDispenseLine struct {
	ID        int64           `db:"id" json:"id"`
	VisitID   int64           `db:"visit_id" json:"visit_id"`
	BatchID   *int64          `db:"batch_id" json:"batch_id,omitempty"`
	MedName   *string         `db:"med_name" json:"med_name,omitempty"`
	FromStock bool            `db:"from_stock" json:"from_stock"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	ItemName  *string         `db:"item_name" json:"item_name,omitempty"`
}

// DispenseRepository handles dispense record persistence
type DispenseRepository struct {
	db *database.DB
}

// NewDispenseRepository creates a new dispense repository
func NewDispenseRepository(db *database.DB) *DispenseRepository {
	return &DispenseRepository{db: db}
}

const insertDispenseQuery = `
	INSERT INTO dispense_records (visit_id, batch_id, med_name, from_stock, quantity, unit_price)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
`

// Create inserts a dispense record outside any transaction. Used for
// external lines, which mutate no batch.
func (r *DispenseRepository) Create(ctx context.Context, rec *DispenseRecord) error {
	if err := r.db.QueryRowxContext(ctx, insertDispenseQuery,
		rec.VisitID, rec.BatchID, rec.MedName, rec.FromStock, rec.Quantity, rec.UnitPrice,
	).Scan(&rec.ID); err != nil {
		return errors.Storage(err)
	}
	return nil
}

// CreateTx inserts a dispense record inside tx, as part of the same unit
// of work that decrements the batch.
func (r *DispenseRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, rec *DispenseRecord) error {
	if err := tx.QueryRowxContext(ctx, insertDispenseQuery,
		rec.VisitID, rec.BatchID, rec.MedName, rec.FromStock, rec.Quantity, rec.UnitPrice,
	).Scan(&rec.ID); err != nil {
		return errors.Storage(err)
	}
	return nil
}

// ListByVisit lists a visit's dispense trail with batch item names joined
func (r *DispenseRepository) ListByVisit(ctx context.Context, visitID int64) ([]*VisitDispenseLine, error) {
	var lines []*VisitDispenseLine
	query := `
		SELECT d.id, d.visit_id, d.batch_id, d.med_name, d.from_stock,
		       d.quantity, d.unit_price, b.name AS item_name
		FROM dispense_records d
		LEFT JOIN batches b ON d.batch_id = b.id
		WHERE d.visit_id = $1
		ORDER BY d.id
	`
	if err := r.db.SelectContext(ctx, &lines, query, visitID); err != nil {
		return nil, errors.Storage(err)
	}
	return lines, nil
}

// RevenueInRange sums unit_price * quantity over dispense records whose
// visit date falls in [start, end] inclusive.
func (r *DispenseRepository) RevenueInRange(ctx context.Context, start, end string) (decimal.Decimal, error) {
	var revenue decimal.NullDecimal
	query := `
		SELECT SUM(d.unit_price * d.quantity)
		FROM dispense_records d
		JOIN visits v ON d.visit_id = v.id
		WHERE v.visit_date BETWEEN $1 AND $2
	`
	if err := r.db.GetContext(ctx, &revenue, query, start, end); err != nil && err != sql.ErrNoRows {
		return decimal.Zero, errors.Storage(err)
	}
	if !revenue.Valid {
		return decimal.Zero, nil
	}
	return revenue.Decimal, nil
}
