package handlers

import (
	"errors"
	"net/http"

	"print-scheduler/core/repair"

	"go.uber.org/zap"
)

// OrdersRepairer fixes the orders file in place
type OrdersRepairer interface {
	Repair(path string) (repair.Result, error)
}

// RepairHandler exposes the orders file repair
type RepairHandler struct {
	repairer   OrdersRepairer
	ordersPath string
	log        *zap.Logger
}

// NewRepairHandler creates a new repair handler
func NewRepairHandler(repairer OrdersRepairer, ordersPath string, log *zap.Logger) *RepairHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RepairHandler{
		repairer:   repairer,
		ordersPath: ordersPath,
		log:        log,
	}
}

// FixJSON handles POST /api/fix_json
func (h *RepairHandler) FixJSON(w http.ResponseWriter, r *http.Request) {
	if h.ordersPath == "" {
		writeError(w, http.StatusNotFound, "Orders are not stored in a file")
		return
	}

	result, err := h.repairer.Repair(h.ordersPath)
	if err != nil {
		h.log.Error("Failed to repair orders file", zap.String("path", h.ordersPath), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, repair.ErrUnrecoverable) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]interface{}{
			"success": false,
			"message": "Orders file could not be repaired",
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Orders file checked",
		"action":  result.Action,
		"details": result.Detail,
	})
}
