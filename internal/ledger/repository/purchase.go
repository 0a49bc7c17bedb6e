package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/errors"
)

// PurchaseRecord is one append-only acquisition cost event against a
// batch. It is a parallel book to the on-hand trail: recording a purchase
// never changes batch quantity.
type PurchaseRecord struct {
	ID           int64           `db:"id" json:"id"`
	BatchID      int64           `db:"batch_id" json:"batch_id"`
	PurchaseDate string          `db:"purchase_date" json:"purchase_date"`
	Quantity     int             `db:"quantity" json:"quantity"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	TotalCost    decimal.Decimal `db:"total_cost" json:"total_cost"`
}

// PurchaseRepository handles purchase record persistence
type PurchaseRepository struct {
	db *database.DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create appends a purchase record and sets its ID
func (r *PurchaseRepository) Create(ctx context.Context, p *PurchaseRecord) error {
	query := `
		INSERT INTO purchases (batch_id, purchase_date, quantity, unit_cost, total_cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := r.db.QueryRowxContext(ctx, query,
		p.BatchID, p.PurchaseDate, p.Quantity, p.UnitCost, p.TotalCost,
	).Scan(&p.ID); err != nil {
		return errors.Storage(err)
	}
	return nil
}

// ListByBatch lists the cost trail for a batch, oldest first
func (r *PurchaseRepository) ListByBatch(ctx context.Context, batchID int64) ([]*PurchaseRecord, error) {
	var purchases []*PurchaseRecord
	query := `SELECT * FROM purchases WHERE batch_id = $1 ORDER BY purchase_date, id`
	if err := r.db.SelectContext(ctx, &purchases, query, batchID); err != nil {
		return nil, errors.Storage(err)
	}
	return purchases, nil
}

// CostInRange sums total_cost over purchases whose date falls in
// [start, end] inclusive.
func (r *PurchaseRepository) CostInRange(ctx context.Context, start, end string) (decimal.Decimal, error) {
	var cost decimal.NullDecimal
	query := `SELECT SUM(total_cost) FROM purchases WHERE purchase_date BETWEEN $1 AND $2`
	if err := r.db.GetContext(ctx, &cost, query, start, end); err != nil && err != sql.ErrNoRows {
		return decimal.Zero, errors.Storage(err)
	}
	if !cost.Valid {
		return decimal.Zero, nil
	}
	return cost.Decimal, nil
}
