package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/testutil"
)

func newPurchaseRepo(t *testing.T) (*repository.PurchaseRepository, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "development")
	repo := repository.NewPurchaseRepository(database.NewFromSqlx(mockDB.DB, log))
	return repo, mockDB
}

func TestPurchaseRepository_Create(t *testing.T) {
	repo, mockDB := newPurchaseRepo(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("INSERT INTO purchases").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(4)))

	rec := &repository.PurchaseRecord{
		BatchID:      7,
		PurchaseDate: "2026-08-20",
		Quantity:     100,
		UnitCost:     decimal.RequireFromString("0.80"),
		TotalCost:    decimal.RequireFromString("80.00"),
	}

	err := repo.Create(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(4), rec.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestPurchaseRepository_ListByBatch(t *testing.T) {
	repo, mockDB := newPurchaseRepo(t)
	defer mockDB.Close()

	cols := []string{"id", "batch_id", "purchase_date", "quantity", "unit_cost", "total_cost"}
	rows := testutil.MockRows(cols...).
		AddRow(int64(1), int64(7), "2026-07-01", 50, "0.75", "37.50").
		AddRow(int64(4), int64(7), "2026-08-20", 100, "0.80", "80.00")

	mockDB.ExpectQuery("SELECT * FROM purchases WHERE batch_id = $1").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	purchases, err := repo.ListByBatch(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, purchases, 2)

	assert.Equal(t, "2026-07-01", purchases[0].PurchaseDate, "oldest first")
	assert.True(t, purchases[1].TotalCost.Equal(decimal.RequireFromString("80.00")))

	mockDB.ExpectationsWereMet(t)
}

func TestPurchaseRepository_CostInRange_Empty(t *testing.T) {
	repo, mockDB := newPurchaseRepo(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT SUM(total_cost) FROM purchases").
		WithArgs("2026-01-01", "2026-01-31").
		WillReturnRows(testutil.MockRows("sum").AddRow(nil))

	cost, err := repo.CostInRange(context.Background(), "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.True(t, cost.IsZero())

	mockDB.ExpectationsWereMet(t)
}
