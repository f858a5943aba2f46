package routes

import (
	"net/http"
	"path/filepath"

	"print-scheduler/api/rest/handlers"

	"github.com/gorilla/mux"
)

// Handlers groups everything the router serves
type Handlers struct {
	Dashboard *handlers.DashboardHandler
	Orders    *handlers.OrderHandler
	Upload    *handlers.UploadHandler
	Repair    *handlers.RepairHandler
	Metrics   http.Handler // Prometheus exposition
}

// SetupRoutes configures all API routes and the dashboard file server
func SetupRoutes(r *mux.Router, h Handlers, frontendDir string) {
	r.Use(corsMiddleware)

	// Preflight requests for any path
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.HandleFunc("/", h.Dashboard.Index).Methods("GET")
	r.HandleFunc("/health", h.Dashboard.Health).Methods("GET")
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders", h.Orders.GetOrders).Methods("GET")
	api.HandleFunc("/devices", h.Orders.GetDevices).Methods("GET")
	api.HandleFunc("/optimized_orders", h.Orders.GetOptimizedOrders).Methods("GET")
	api.HandleFunc("/optimize", h.Orders.Optimize).Methods("POST")

	// Dashboard metrics
	api.HandleFunc("/metrics", h.Dashboard.GetMetrics).Methods("GET")

	// Ingestion and maintenance
	api.HandleFunc("/upload_excel", h.Upload.UploadExcel).Methods("POST")
	api.HandleFunc("/fix_json", h.Repair.FixJSON).Methods("POST")

	// Frontend
	static := http.FileServer(http.Dir(frontendDir))
	r.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	}).Methods("GET")
	r.PathPrefix("/dashboard/").Handler(http.StripPrefix("/dashboard/", static)).Methods("GET")
	r.PathPrefix("/").Handler(static).Methods("GET")
}

// corsMiddleware allows the dashboard to be served from any origin
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}
