package handler

import (
	"net/http"
	"time"

	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/httputil"
	"github.com/curevet/ledger-backend/pkg/logger"
)

// AlertHandler exposes an on-demand alert fetch
type AlertHandler struct {
	engine *service.AlertEngine
	logger *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(engine *service.AlertEngine, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		engine: engine,
		logger: log,
	}
}

// Fetch runs an immediate scan and returns every active condition
func (h *AlertHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.engine.Fetch(r.Context(), time.Now())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alerts)
}
