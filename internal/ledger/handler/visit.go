package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/httputil"
	"github.com/curevet/ledger-backend/pkg/logger"
)

// VisitHandler handles visit, appointment and prescription endpoints
type VisitHandler struct {
	service *service.DispensingService
	logger  *logger.Logger
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(svc *service.DispensingService, log *logger.Logger) *VisitHandler {
	return &VisitHandler{
		service: svc,
		logger:  log,
	}
}

type visitRequest struct {
	PetID      int64  `json:"pet_id" validate:"gt=0"`
	VisitDate  string `json:"visit_date" validate:"required,datetime=2006-01-02"`
	DoctorName string `json:"doctor_name" validate:"required"`
	Notes      string `json:"notes"`
}

// Create commits a visit
func (h *VisitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	visit := &repository.Visit{
		PetID:      req.PetID,
		VisitDate:  req.VisitDate,
		DoctorName: req.DoctorName,
		Notes:      req.Notes,
	}
	if err := h.service.CommitVisit(r.Context(), visit); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, visit)
}

// Get gets a visit by ID
func (h *VisitHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	visit, err := h.service.GetVisit(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, visit)
}

// ListByPet lists a pet's visit history, newest first
func (h *VisitHandler) ListByPet(w http.ResponseWriter, r *http.Request) {
	petID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	visits, err := h.service.ListVisitsByPet(r.Context(), petID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, visits)
}

type appointmentEntryRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason"`
}

type appointmentsRequest struct {
	Appointments []appointmentEntryRequest `json:"appointments" validate:"required,min=1,dive"`
}

// CreateAppointments books follow-up appointments against a visit
func (h *VisitHandler) CreateAppointments(w http.ResponseWriter, r *http.Request) {
	visitID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req appointmentsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	entries := make([]service.AppointmentEntry, 0, len(req.Appointments))
	for _, a := range req.Appointments {
		entries = append(entries, service.AppointmentEntry{
			Date:       a.Date,
			ReasonText: a.Reason,
		})
	}

	appts, err := h.service.CommitFutureAppointments(r.Context(), visitID, entries)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, appts)
}

// ListAppointments lists the follow-ups booked during a visit
func (h *VisitHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	visitID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	appts, err := h.service.ListAppointments(r.Context(), visitID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, appts)
}

// ListReasons lists the reason dictionary
func (h *VisitHandler) ListReasons(w http.ResponseWriter, r *http.Request) {
	reasons, err := h.service.ListReasons(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reasons)
}

type prescriptionRequest struct {
	BatchID   *int64          `json:"batch_id"`
	MedName   string          `json:"med_name"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreatePrescription commits one prescription line against a visit
func (h *VisitHandler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	visitID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req prescriptionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	source := service.LineSource{BatchID: req.BatchID, MedName: req.MedName}
	rec, err := h.service.CommitPrescriptionLine(r.Context(), visitID, source, req.Quantity, req.UnitPrice)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// ListPrescriptions lists a visit's dispense trail
func (h *VisitHandler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	visitID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	lines, err := h.service.ListPrescriptions(r.Context(), visitID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lines)
}
