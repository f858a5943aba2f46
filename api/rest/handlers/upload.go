package handlers

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"print-scheduler/core/ingest"
	"print-scheduler/core/models"
	"print-scheduler/core/monitoring"
	"print-scheduler/core/optimizer"
	"print-scheduler/core/repository"
	"print-scheduler/storage"

	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

// UploadResponse is returned after an order sheet has been processed
type UploadResponse struct {
	Message     string                 `json:"message"`
	OrdersCount int                    `json:"orders_count"`
	Skipped     int                    `json:"skipped_rows"`
	Metrics     models.MetricsSnapshot `json:"metrics"`
	Archive     string                 `json:"archive,omitempty"`
}

// UploadHandler turns an uploaded order sheet into stored orders and metrics
type UploadHandler struct {
	store     repository.OrderStore
	optimizer *optimizer.ChangeoverOptimizer
	monitor   *monitoring.OrderMonitor
	exporter  *monitoring.MetricsExporter
	archiver  storage.Archiver
	log       *zap.Logger

	readRows func(r io.ReaderAt, size int64) ([][]string, error)
}

// NewUploadHandler creates a new upload handler. archiver may be nil.
func NewUploadHandler(
	store repository.OrderStore,
	opt *optimizer.ChangeoverOptimizer,
	monitor *monitoring.OrderMonitor,
	exporter *monitoring.MetricsExporter,
	archiver storage.Archiver,
	log *zap.Logger,
) *UploadHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadHandler{
		store:     store,
		optimizer: opt,
		monitor:   monitor,
		exporter:  exporter,
		archiver:  archiver,
		log:       log,
		readRows:  ingest.ReadWorkbook,
	}
}

// UploadExcel handles POST /api/upload_excel
func (h *UploadHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
		return
	}
	h.log.Info("Received order sheet",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(data)))

	rows, err := h.readRows(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		h.log.Warn("Failed to read order sheet", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, http.StatusBadRequest, "Failed to read Excel file: "+err.Error())
		return
	}
	sheet, err := ingest.ParseRows(rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse Excel file: "+err.Error())
		return
	}

	if err := h.store.SaveOrders(sheet.Orders); err != nil {
		h.log.Error("Failed to save orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save orders: "+err.Error())
		return
	}

	result := h.optimizer.Optimize(sheet.Orders)
	if h.exporter != nil {
		h.exporter.Observe(monitoring.SourceUpload, result)
	}

	snapshot, err := h.monitor.Persist(result)
	if err != nil {
		// Orders are already stored; report the fresh figures anyway
		h.log.Error("Failed to save metrics snapshot", zap.Error(err))
		snapshot = models.NewMetricsSnapshot("", result.Metrics, time.Now().UTC())
	}

	resp := UploadResponse{
		Message:     "File uploaded and processed",
		OrdersCount: len(sheet.Orders),
		Skipped:     sheet.Skipped,
		Metrics:     snapshot,
	}

	if h.archiver != nil {
		uri, err := h.archiver.Archive(r.Context(), header.Filename, data)
		if err != nil {
			h.log.Error("Failed to archive upload", zap.String("filename", header.Filename), zap.Error(err))
		} else {
			resp.Archive = uri
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
