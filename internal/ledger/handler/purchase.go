package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/httputil"
	"github.com/curevet/ledger-backend/pkg/logger"
)

// PurchaseHandler handles purchase book endpoints
type PurchaseHandler struct {
	service *service.PurchasingService
	logger  *logger.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(svc *service.PurchasingService, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: svc,
		logger:  log,
	}
}

type purchaseRequest struct {
	BatchID      int64           `json:"batch_id" validate:"gt=0"`
	PurchaseDate string          `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
}

// Create records an acquisition cost event
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.RecordPurchase(r.Context(), req.BatchID, req.PurchaseDate, req.Quantity, req.UnitCost)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// ListByBatch lists the cost trail for a batch
func (h *PurchaseHandler) ListByBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	purchases, err := h.service.ListPurchases(r.Context(), batchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, purchases)
}
