package handler

import (
	"net/http"

	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/httputil"
	"github.com/curevet/ledger-backend/pkg/logger"
)

// ReportHandler handles accounting report endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// Summary builds the revenue/cost/profit/appointments view for a range
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	summary, err := h.service.Summarize(r.Context(), start, end)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}
