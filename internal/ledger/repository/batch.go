package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/errors"
)

// Batch is one dated lot of a named item. A batch is identified logically
// by (name, expiration_date); the same item name may exist across several
// batches with different expiry dates.
type Batch struct {
	ID               int64           `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Category         string          `db:"category" json:"category"`
	Quantity         int             `db:"quantity" json:"quantity"`
	Unit             string          `db:"unit" json:"unit"`
	ReorderLevel     int             `db:"reorder_level" json:"reorder_level"`
	ExpirationDate   string          `db:"expiration_date" json:"expiration_date"`
	DefaultSellPrice decimal.Decimal `db:"default_sell_price" json:"default_sell_price"`
	IsActive         bool            `db:"is_active" json:"is_active"`
}

// ItemStock is the per-item aggregate view across a name's batches.
type ItemStock struct {
	Name          string `db:"name" json:"name"`
	TotalQuantity int    `db:"total_quantity" json:"total_quantity"`
	ReorderLevel  int    `db:"reorder_level" json:"reorder_level"`
	BatchCount    int    `db:"batch_count" json:"batch_count"`
}

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Upsert creates a batch or, if one with the same (name, expiration_date)
// exists, adds the quantity to it and overwrites price, category, unit and
// reorder level (last write wins). The lookup and the write run in one
// transaction with the row locked. Returns true when an existing batch was
// restocked; b.ID and b.Quantity reflect the stored state on return.
func (r *BatchRepository) Upsert(ctx context.Context, b *Batch) (bool, error) {
	restocked := false

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var existing struct {
			ID       int64 `db:"id"`
			Quantity int   `db:"quantity"`
		}

		query := `SELECT id, quantity FROM batches WHERE name = $1 AND expiration_date = $2 FOR UPDATE`
		err := tx.GetContext(ctx, &existing, query, b.Name, b.ExpirationDate)
		if err != nil && err != sql.ErrNoRows {
			return errors.Storage(err)
		}

		if err == nil {
			restocked = true
			newQty := existing.Quantity + b.Quantity

			update := `
				UPDATE batches SET
					quantity = $2, category = $3, unit = $4,
					reorder_level = $5, default_sell_price = $6, is_active = TRUE
				WHERE id = $1
			`
			if _, err := tx.ExecContext(ctx, update,
				existing.ID, newQty, b.Category, b.Unit, b.ReorderLevel, b.DefaultSellPrice,
			); err != nil {
				return errors.Storage(err)
			}

			b.ID = existing.ID
			b.Quantity = newQty
			return nil
		}

		insert := `
			INSERT INTO batches
				(name, category, quantity, unit, reorder_level, expiration_date, default_sell_price, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			RETURNING id
		`
		if err := tx.QueryRowxContext(ctx, insert,
			b.Name, b.Category, b.Quantity, b.Unit, b.ReorderLevel, b.ExpirationDate, b.DefaultSellPrice,
		).Scan(&b.ID); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return errors.Storage(err)
		}

		return nil
	})

	return restocked, err
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id int64) (*Batch, error) {
	var batch Batch
	query := `SELECT * FROM batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, errors.Storage(err)
	}
	return &batch, nil
}

// Update performs a full field overwrite, including quantity. Used for
// administrative correction, not dispensing.
func (r *BatchRepository) Update(ctx context.Context, b *Batch) error {
	query := `
		UPDATE batches SET
			name = $2, category = $3, quantity = $4, unit = $5,
			reorder_level = $6, expiration_date = $7, default_sell_price = $8
		WHERE id = $1 AND is_active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query,
		b.ID, b.Name, b.Category, b.Quantity, b.Unit,
		b.ReorderLevel, b.ExpirationDate, b.DefaultSellPrice,
	)
	if err != nil {
		return errors.Storage(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// SoftDelete hides the batch from allocation and catalog listings while
// preserving it for historical dispense/purchase joins.
func (r *BatchRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE batches SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Storage(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// ListAll lists all active batches, ordered by name then expiry
func (r *BatchRepository) ListAll(ctx context.Context) ([]*Batch, error) {
	var batches []*Batch
	query := `SELECT * FROM batches WHERE is_active = TRUE ORDER BY name, expiration_date`
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, errors.Storage(err)
	}
	return batches, nil
}

// ListByName lists active batches for an item in FEFO order
func (r *BatchRepository) ListByName(ctx context.Context, name string) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE name = $1 AND is_active = TRUE
		ORDER BY expiration_date ASC
	`
	if err := r.db.SelectContext(ctx, &batches, query, name); err != nil {
		return nil, errors.Storage(err)
	}
	return batches, nil
}

// Candidates lists active batches with stock for an item in FEFO order.
// The default sell price is included so the caller can pre-fill pricing.
func (r *BatchRepository) Candidates(ctx context.Context, name string) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE name = $1 AND quantity > 0 AND is_active = TRUE
		ORDER BY expiration_date ASC
	`
	if err := r.db.SelectContext(ctx, &batches, query, name); err != nil {
		return nil, errors.Storage(err)
	}
	return batches, nil
}

// AvailableQuantity reads the current quantity of a batch. This is a
// point-in-time read, not a reservation.
func (r *BatchRepository) AvailableQuantity(ctx context.Context, id int64) (int, error) {
	var qty int
	query := `SELECT quantity FROM batches WHERE id = $1 AND is_active = TRUE`
	if err := r.db.GetContext(ctx, &qty, query, id); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.NotFound("batch")
		}
		return 0, errors.Storage(err)
	}
	return qty, nil
}

// ListLowStock lists every active batch at or below its reorder level,
// evaluated per batch.
func (r *BatchRepository) ListLowStock(ctx context.Context) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE quantity <= reorder_level AND is_active = TRUE
		ORDER BY name, expiration_date
	`
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, errors.Storage(err)
	}
	return batches, nil
}

// ListLowStockByItem aggregates stock across an item's batches and flags
// names whose combined quantity is at or below the item's reorder level.
func (r *BatchRepository) ListLowStockByItem(ctx context.Context) ([]*ItemStock, error) {
	var items []*ItemStock
	query := `
		SELECT name,
		       SUM(quantity)      AS total_quantity,
		       MAX(reorder_level) AS reorder_level,
		       COUNT(*)           AS batch_count
		FROM batches
		WHERE is_active = TRUE
		GROUP BY name
		HAVING SUM(quantity) <= MAX(reorder_level)
		ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, errors.Storage(err)
	}
	return items, nil
}

// ListExpiring lists active batches whose expiry date is at or before the
// cutoff (ISO date string, inclusive).
func (r *BatchRepository) ListExpiring(ctx context.Context, cutoff string) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM batches
		WHERE expiration_date <= $1 AND is_active = TRUE
		ORDER BY expiration_date ASC
	`
	if err := r.db.SelectContext(ctx, &batches, query, cutoff); err != nil {
		return nil, errors.Storage(err)
	}
	return batches, nil
}

// GetForUpdate reads a batch inside tx with a row lock. Used by the
// dispensing unit of work so the availability check and the decrement see
// the same row state.
func (r *BatchRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*Batch, error) {
	var batch Batch
	query := `SELECT * FROM batches WHERE id = $1 AND is_active = TRUE FOR UPDATE`
	if err := tx.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, errors.Storage(err)
	}
	return &batch, nil
}

// Decrement subtracts qty from the locked batch row inside tx. The guard
// keeps quantity from ever going negative even if a caller skips the
// availability check.
func (r *BatchRepository) Decrement(ctx context.Context, tx *sqlx.Tx, id int64, qty int) error {
	query := `UPDATE batches SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2`
	result, err := tx.ExecContext(ctx, query, id, qty)
	if err != nil {
		return errors.Storage(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.Conflict("batch quantity changed concurrently")
	}

	return nil
}
