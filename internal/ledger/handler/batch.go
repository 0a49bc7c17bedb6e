package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/errors"
	"github.com/curevet/ledger-backend/pkg/httputil"
	"github.com/curevet/ledger-backend/pkg/logger"
)

// BatchHandler handles catalog batch endpoints
type BatchHandler struct {
	service *service.CatalogService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.CatalogService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid " + name)
	}
	return id, nil
}

type batchRequest struct {
	Name             string          `json:"name" validate:"required"`
	Category         string          `json:"category"`
	Quantity         int             `json:"quantity" validate:"gt=0"`
	Unit             string          `json:"unit"`
	ReorderLevel     int             `json:"reorder_level" validate:"gte=0"`
	ExpirationDate   string          `json:"expiration_date" validate:"required,datetime=2006-01-02"`
	DefaultSellPrice decimal.Decimal `json:"default_sell_price"`
}

func (req *batchRequest) toBatch() *repository.Batch {
	return &repository.Batch{
		Name:             req.Name,
		Category:         req.Category,
		Quantity:         req.Quantity,
		Unit:             req.Unit,
		ReorderLevel:     req.ReorderLevel,
		ExpirationDate:   req.ExpirationDate,
		DefaultSellPrice: req.DefaultSellPrice,
		IsActive:         true,
	}
}

// Upsert takes in a batch: a new lot is created, an existing
// (name, expiry) lot is restocked.
func (h *BatchHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.DefaultSellPrice.IsNegative() {
		httputil.Error(w, errors.Validation(map[string]string{
			"default_sell_price": "must be at least 0",
		}))
		return
	}

	batch := req.toBatch()
	if err := h.service.UpsertBatch(r.Context(), batch); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// List lists the full active catalog
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListAll(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Update performs an administrative overwrite of a batch
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req batchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch := req.toBatch()
	batch.ID = id
	if err := h.service.UpdateBatch(r.Context(), batch); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Delete soft-deletes a batch
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteBatch(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// ListByItem lists an item's batches in FEFO order
func (h *BatchHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	batches, err := h.service.ListBatches(r.Context(), name)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Candidates lists an item's batches with stock available, FEFO ordered
func (h *BatchHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	batches, err := h.service.Candidates(r.Context(), name)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Available reads the current quantity of a batch
func (h *BatchHandler) Available(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	qty, err := h.service.AvailableQuantity(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"batch_id":  id,
		"available": qty,
	})
}

// LowStock lists batches at or below reorder level. With ?by=item the
// per-item aggregate view is returned instead.
func (h *BatchHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("by") == "item" {
		items, err := h.service.ListLowStockByItem(r.Context())
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, items)
		return
	}

	batches, err := h.service.ListLowStock(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}
