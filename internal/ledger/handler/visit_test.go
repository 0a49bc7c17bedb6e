package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curevet/ledger-backend/internal/ledger/handler"
	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/httputil"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/testutil"
)

func newVisitRouter(t *testing.T) (*chi.Mux, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "development")
	db := database.NewFromSqlx(mockDB.DB, log)

	svc := service.NewDispensingService(
		db,
		repository.NewVisitRepository(db),
		repository.NewBatchRepository(db),
		repository.NewDispenseRepository(db),
		nil, // no event publisher needed for handler tests
		log,
	)
	h := handler.NewVisitHandler(svc, log)

	r := chi.NewRouter()
	r.Post("/api/v1/ledger/visits", h.Create)
	r.Post("/api/v1/ledger/visits/{id}/prescriptions", h.CreatePrescription)
	return r, mockDB
}

func TestVisitHandler_Create(t *testing.T) {
	r, mockDB := newVisitRouter(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("INSERT INTO visits").
		WillReturnRows(testutil.MockRows("id").AddRow(int64(5)))

	body := `{"pet_id": 12, "visit_date": "2026-08-29", "doctor_name": "Dr. Weber"}`
	req := httptest.NewRequest("POST", "/api/v1/ledger/visits", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code, "unexpected status code. Body: %s", rr.Body.String())

	var resp httputil.Response
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)

	mockDB.ExpectationsWereMet(t)
}

func TestVisitHandler_Create_Validation(t *testing.T) {
	r, mockDB := newVisitRouter(t)
	defer mockDB.Close()

	// Wrong date format and missing doctor name
	body := `{"pet_id": 12, "visit_date": "29.08.2026"}`
	req := httptest.NewRequest("POST", "/api/v1/ledger/visits", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code, "expected 400. Body: %s", rr.Body.String())

	var resp httputil.Response
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	mockDB.ExpectationsWereMet(t)
}

func TestVisitHandler_CreatePrescription_InsufficientStock(t *testing.T) {
	r, mockDB := newVisitRouter(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT * FROM visits WHERE id = $1").
		WithArgs(int64(5)).
		WillReturnRows(testutil.MockRows("id", "pet_id", "visit_date", "doctor_name", "notes").
			AddRow(int64(5), int64(12), "2026-08-29", "Dr. Weber", ""))

	cols := []string{"id", "name", "category", "quantity", "unit", "reorder_level", "expiration_date", "default_sell_price", "is_active"}
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM batches WHERE id = $1 AND is_active = TRUE FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(7), "Amoxicillin 250mg", "antibiotic", 3, "tablet", 3, "2027-03-01", "1.50", true))
	mockDB.ExpectRollback()

	body := `{"batch_id": 7, "quantity": 10, "unit_price": "1.50"}`
	req := httptest.NewRequest("POST", "/api/v1/ledger/visits/5/prescriptions", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code, "expected 409. Body: %s", rr.Body.String())

	var resp httputil.Response
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	assert.Equal(t, "10", resp.Error.Details["requested"])
	assert.Equal(t, "3", resp.Error.Details["available"])

	mockDB.ExpectationsWereMet(t)
}
