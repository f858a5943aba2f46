package handlers

import (
	"io"
	"net/http"

	"print-scheduler/core/models"
	"print-scheduler/core/monitoring"
	"print-scheduler/core/optimizer"
	"print-scheduler/core/repository"
	"print-scheduler/core/spec"

	"go.uber.org/zap"
)

const maxBatchBytes = 10 << 20

// OrderHandler handles order and device requests
type OrderHandler struct {
	store     repository.OrderStore
	optimizer *optimizer.ChangeoverOptimizer
	exporter  *monitoring.MetricsExporter
	log       *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	store repository.OrderStore,
	opt *optimizer.ChangeoverOptimizer,
	exporter *monitoring.MetricsExporter,
	log *zap.Logger,
) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{
		store:     store,
		optimizer: opt,
		exporter:  exporter,
		log:       log,
	}
}

// GetOrders handles GET /api/orders
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.LoadOrders()
	if err != nil {
		h.log.Error("Failed to load orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load orders: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetDevices handles GET /api/devices
func (h *OrderHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.store.LoadDevices()
	if err != nil {
		h.log.Error("Failed to load devices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load devices: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// GetOptimizedOrders handles GET /api/optimized_orders. When the optimizer
// has to fall back, the stored orders are served as they are.
func (h *OrderHandler) GetOptimizedOrders(w http.ResponseWriter, r *http.Request) {
	raw, err := h.store.LoadOrders()
	if err != nil {
		h.log.Error("Failed to load orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load orders: "+err.Error())
		return
	}

	result := h.optimizer.OptimizeRaw(raw)
	h.observe(monitoring.SourceStored, result)

	if result.Degraded {
		h.log.Warn("Serving stored orders without optimization")
		writeJSON(w, http.StatusOK, raw)
		return
	}
	writeJSON(w, http.StatusOK, result.OrderedJobs)
}

// Optimize handles POST /api/optimize. The body is a JSON or YAML order
// batch; nothing is stored.
func (h *OrderHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBatchBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > maxBatchBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Order batch is too large")
		return
	}

	raw, err := spec.ParseBatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order batch: "+err.Error())
		return
	}

	result := h.optimizer.OptimizeRaw(raw)
	h.observe(monitoring.SourceAPI, result)
	writeJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) observe(source string, result models.OptimizationResult) {
	if h.exporter != nil {
		h.exporter.Observe(source, result)
	}
}
