package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/errors"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/testutil"
)

func newBatchRepo(t *testing.T) (*repository.BatchRepository, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "development")
	repo := repository.NewBatchRepository(database.NewFromSqlx(mockDB.DB, log))
	return repo, mockDB
}

func TestBatchRepository_Upsert_NewBatch(t *testing.T) {
	repo, mockDB := newBatchRepo(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT id, quantity FROM batches WHERE name = $1 AND expiration_date = $2 FOR UPDATE").
		WithArgs("Amoxicillin 250mg", "2027-03-01").
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("INSERT INTO batches").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(7)))
	mockDB.ExpectCommit()

	batch := &repository.Batch{
		Name:             "Amoxicillin 250mg",
		Category:         "antibiotic",
		Quantity:         40,
		Unit:             "tablet",
		ReorderLevel:     10,
		ExpirationDate:   "2027-03-01",
		DefaultSellPrice: decimal.RequireFromString("1.50"),
	}

	restocked, err := repo.Upsert(context.Background(), batch)
	require.NoError(t, err)

	assert.False(t, restocked)
	assert.Equal(t, int64(7), batch.ID)
	assert.Equal(t, 40, batch.Quantity)

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_Upsert_Restock(t *testing.T) {
	repo, mockDB := newBatchRepo(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT id, quantity FROM batches WHERE name = $1 AND expiration_date = $2 FOR UPDATE").
		WithArgs("Amoxicillin 250mg", "2027-03-01").
		WillReturnRows(testutil.MockRows("id", "quantity").AddRow(int64(7), 15))
	mockDB.ExpectExec("UPDATE batches SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	batch := &repository.Batch{
		Name:             "Amoxicillin 250mg",
		Quantity:         25,
		ExpirationDate:   "2027-03-01",
		DefaultSellPrice: decimal.RequireFromString("1.75"),
	}

	restocked, err := repo.Upsert(context.Background(), batch)
	require.NoError(t, err)

	assert.True(t, restocked)
	assert.Equal(t, int64(7), batch.ID)
	assert.Equal(t, 40, batch.Quantity, "restock adds intake to existing quantity")

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_GetByID_NotFound(t *testing.T) {
	repo, mockDB := newBatchRepo(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT * FROM batches WHERE id = $1").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_Candidates_FEFOOrder(t *testing.T) {
	repo, mockDB := newBatchRepo(t)
	defer mockDB.Close()

	cols := []string{"id", "name", "category", "quantity", "unit", "reorder_level", "expiration_date", "default_sell_price", "is_active"}
	rows := testutil.MockRows(cols...).
		AddRow(int64(3), "Meloxicam", "nsaid", 5, "ml", 2, "2026-09-10", "4.00", true).
		AddRow(int64(1), "Meloxicam", "nsaid", 12, "ml", 2, "2027-01-20", "4.00", true)

	mockDB.ExpectQuery("SELECT * FROM batches").
		WithArgs("Meloxicam").
		WillReturnRows(rows)

	batches, err := repo.Candidates(context.Background(), "Meloxicam")
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, "2026-09-10", batches[0].ExpirationDate, "earliest expiry first")
	assert.Equal(t, int64(3), batches[0].ID)

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_SoftDelete_NotFound(t *testing.T) {
	repo, mockDB := newBatchRepo(t)
	defer mockDB.Close()

	mockDB.ExpectExec("UPDATE batches SET is_active = FALSE").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_ListLowStockByItem(t *testing.T) {
	repo, mockDB := newBatchRepo(t)
	defer mockDB.Close()

	rows := testutil.MockRows("name", "total_quantity", "reorder_level", "batch_count").
		AddRow("Insulin", 8, 10, 2)

	mockDB.ExpectQuery("SELECT name,").WillReturnRows(rows)

	items, err := repo.ListLowStockByItem(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Insulin", items[0].Name)
	assert.Equal(t, 8, items[0].TotalQuantity)
	assert.Equal(t, 2, items[0].BatchCount)

	mockDB.ExpectationsWereMet(t)
}
