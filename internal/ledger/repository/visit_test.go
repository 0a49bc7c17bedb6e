package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/testutil"
)

func newVisitRepo(t *testing.T) (*repository.VisitRepository, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "development")
	repo := repository.NewVisitRepository(database.NewFromSqlx(mockDB.DB, log))
	return repo, mockDB
}

func TestVisitRepository_Create(t *testing.T) {
	repo, mockDB := newVisitRepo(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("INSERT INTO visits").
		WithArgs(int64(12), "2026-08-29", "Dr. Weber", "annual check").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(5)))

	visit := &repository.Visit{
		PetID:      12,
		VisitDate:  "2026-08-29",
		DoctorName: "Dr. Weber",
		Notes:      "annual check",
	}

	err := repo.Create(context.Background(), visit)
	require.NoError(t, err)
	assert.Equal(t, int64(5), visit.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_GetOrCreateReason_New(t *testing.T) {
	repo, mockDB := newVisitRepo(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("INSERT INTO reasons (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id").
		WithArgs("vaccination").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(3)))

	id, err := repo.GetOrCreateReason(context.Background(), "vaccination")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_GetOrCreateReason_Existing(t *testing.T) {
	repo, mockDB := newVisitRepo(t)
	defer mockDB.Close()

	// Conflict makes the insert return no rows; the existing ID is then read
	mockDB.ExpectQuery("INSERT INTO reasons (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id").
		WithArgs("vaccination").
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("SELECT id FROM reasons WHERE name = $1").
		WithArgs("vaccination").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(3)))

	id, err := repo.GetOrCreateReason(context.Background(), "vaccination")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_ListAppointmentsOn(t *testing.T) {
	repo, mockDB := newVisitRepo(t)
	defer mockDB.Close()

	rows := testutil.MockRows("appointment_id", "visit_id", "pet_id", "appointment_date", "reason").
		AddRow(int64(1), int64(5), int64(12), "2026-08-30", "vaccination").
		AddRow(int64(2), int64(6), int64(9), "2026-08-30", nil)

	mockDB.ExpectQuery("SELECT fa.id AS appointment_id, fa.visit_id, v.pet_id, fa.appointment_date, rs.name AS reason").
		WithArgs("2026-08-30").
		WillReturnRows(rows)

	appts, err := repo.ListAppointmentsOn(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Len(t, appts, 2)

	require.NotNil(t, appts[0].Reason)
	assert.Equal(t, "vaccination", *appts[0].Reason)
	assert.Nil(t, appts[1].Reason, "appointments without reason text carry no reason")

	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_CountInRange(t *testing.T) {
	repo, mockDB := newVisitRepo(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT COUNT(*) FROM visits WHERE visit_date BETWEEN $1 AND $2").
		WithArgs("2026-08-01", "2026-08-31").
		WillReturnRows(testutil.MockRows("count").AddRow(int64(17)))

	count, err := repo.CountInRange(context.Background(), "2026-08-01", "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, int64(17), count)

	mockDB.ExpectationsWereMet(t)
}
