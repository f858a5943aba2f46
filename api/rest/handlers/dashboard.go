package handlers

import (
	"net/http"
	"time"

	"print-scheduler/core/monitoring"

	"go.uber.org/zap"
)

// DashboardHandler serves the service banner, health and metrics endpoints
type DashboardHandler struct {
	monitor *monitoring.OrderMonitor
	tracker *monitoring.RunTracker
	log     *zap.Logger
	now     func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	monitor *monitoring.OrderMonitor,
	tracker *monitoring.RunTracker,
	log *zap.Logger,
) *DashboardHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DashboardHandler{
		monitor: monitor,
		tracker: tracker,
		log:     log,
		now:     time.Now,
	}
}

// Index handles GET /
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Print scheduling API",
		"status":  "running",
		"time":    h.now(),
	})
}

// Health handles GET /health
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"time":   h.now(),
	}
	if h.tracker != nil {
		if last, ok := h.tracker.LastRun(); ok {
			resp["last_run"] = last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMetrics handles GET /api/metrics
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.monitor.LatestSnapshot()
	if err != nil {
		h.log.Error("Failed to load metrics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load metrics: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
