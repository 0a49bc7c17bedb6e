package service_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/errors"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/testutil"
)

var batchCols = []string{"id", "name", "category", "quantity", "unit", "reorder_level", "expiration_date", "default_sell_price", "is_active"}

func newDispensingService(t *testing.T) (*service.DispensingService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "development")
	db := database.NewFromSqlx(mockDB.DB, log)

	svc := service.NewDispensingService(
		db,
		repository.NewVisitRepository(db),
		repository.NewBatchRepository(db),
		repository.NewDispenseRepository(db),
		nil,
		log,
	)
	return svc, mockDB
}

func expectVisitLookup(mockDB *testutil.MockDB, visitID int64) {
	mockDB.ExpectQuery("SELECT * FROM visits WHERE id = $1").
		WithArgs(visitID).
		WillReturnRows(testutil.MockRows("id", "pet_id", "visit_date", "doctor_name", "notes").
			AddRow(visitID, int64(12), "2026-08-29", "Dr. Weber", ""))
}

func TestDispensingService_CommitVisit_Validation(t *testing.T) {
	svc, mockDB := newDispensingService(t)
	defer mockDB.Close()

	err := svc.CommitVisit(context.Background(), &repository.Visit{
		PetID:     0,
		VisitDate: "",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "pet_id")
	assert.Contains(t, appErr.Details, "visit_date")
	assert.Contains(t, appErr.Details, "doctor_name")

	mockDB.ExpectationsWereMet(t)
}

func TestDispensingService_CommitPrescriptionLine_StockSuccess(t *testing.T) {
	svc, mockDB := newDispensingService(t)
	defer mockDB.Close()

	expectVisitLookup(mockDB, 5)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches WHERE id = $1 AND is_active = TRUE FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows(batchCols...).
			AddRow(int64(7), "Amoxicillin 250mg", "antibiotic", 10, "tablet", 3, "2027-03-01", "1.50", true))
	mockDB.ExpectExec("UPDATE batches SET quantity = quantity - $2").
		WithArgs(int64(7), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("INSERT INTO dispense_records").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(21)))
	mockDB.ExpectCommit()

	rec, err := svc.CommitPrescriptionLine(context.Background(), 5, service.FromBatch(7), 4, decimal.RequireFromString("1.25"))
	require.NoError(t, err)

	assert.Equal(t, int64(21), rec.ID)
	assert.True(t, rec.FromStock)
	require.NotNil(t, rec.BatchID)
	assert.Equal(t, int64(7), *rec.BatchID)
	assert.True(t, rec.UnitPrice.Equal(decimal.RequireFromString("1.25")), "charged price is the supplied one, not the batch default")

	mockDB.ExpectationsWereMet(t)
}

func TestDispensingService_CommitPrescriptionLine_InsufficientStock(t *testing.T) {
	svc, mockDB := newDispensingService(t)
	defer mockDB.Close()

	expectVisitLookup(mockDB, 5)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches WHERE id = $1 AND is_active = TRUE FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows(batchCols...).
			AddRow(int64(7), "Amoxicillin 250mg", "antibiotic", 3, "tablet", 3, "2027-03-01", "1.50", true))
	mockDB.ExpectRollback()

	_, err := svc.CommitPrescriptionLine(context.Background(), 5, service.FromBatch(7), 10, decimal.RequireFromString("1.50"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "10", appErr.Details["requested"])
	assert.Equal(t, "3", appErr.Details["available"])

	mockDB.ExpectationsWereMet(t)
}

func TestDispensingService_CommitPrescriptionLine_QuantityValidation(t *testing.T) {
	svc, mockDB := newDispensingService(t)
	defer mockDB.Close()

	_, err := svc.CommitPrescriptionLine(context.Background(), 5, service.FromBatch(7), 0, decimal.Zero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	mockDB.ExpectationsWereMet(t)
}

func TestDispensingService_CommitPrescriptionLine_AmbiguousSource(t *testing.T) {
	svc, mockDB := newDispensingService(t)
	defer mockDB.Close()

	batchID := int64(7)
	both := service.LineSource{BatchID: &batchID, MedName: "Special compound"}

	_, err := svc.CommitPrescriptionLine(context.Background(), 5, both, 1, decimal.Zero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	mockDB.ExpectationsWereMet(t)
}

func TestDispensingService_CommitPrescriptionLine_External(t *testing.T) {
	svc, mockDB := newDispensingService(t)
	defer mockDB.Close()

	expectVisitLookup(mockDB, 5)

	// No transaction and no batch mutation for external lines
	mockDB.ExpectQuery("INSERT INTO dispense_records").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(22)))

	rec, err := svc.CommitPrescriptionLine(context.Background(), 5, service.External("Special compound"), 1, decimal.RequireFromString("12.00"))
	require.NoError(t, err)

	assert.False(t, rec.FromStock)
	assert.Nil(t, rec.BatchID)
	require.NotNil(t, rec.MedName)
	assert.Equal(t, "Special compound", *rec.MedName)

	mockDB.ExpectationsWereMet(t)
}

func TestDispensingService_CommitFutureAppointments(t *testing.T) {
	svc, mockDB := newDispensingService(t)
	defer mockDB.Close()

	expectVisitLookup(mockDB, 5)

	mockDB.ExpectQuery("INSERT INTO reasons (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id").
		WithArgs("vaccination").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(3)))
	mockDB.ExpectQuery("INSERT INTO future_appointments").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(1)))

	// Second entry has no reason text, so no reason lookup happens
	mockDB.ExpectQuery("INSERT INTO future_appointments").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(2)))

	appts, err := svc.CommitFutureAppointments(context.Background(), 5, []service.AppointmentEntry{
		{Date: "2026-09-15", ReasonText: "vaccination"},
		{Date: "2026-10-01", ReasonText: "  "},
	})
	require.NoError(t, err)
	require.Len(t, appts, 2)

	require.NotNil(t, appts[0].ReasonID)
	assert.Equal(t, int64(3), *appts[0].ReasonID)
	assert.Nil(t, appts[1].ReasonID)

	mockDB.ExpectationsWereMet(t)
}
