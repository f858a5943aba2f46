package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"print-scheduler/api/rest/handlers"
	"print-scheduler/api/rest/routes"
	"print-scheduler/config"
	"print-scheduler/core/ingest"
	"print-scheduler/core/monitoring"
	"print-scheduler/core/optimizer"
	"print-scheduler/core/repair"
	"print-scheduler/core/repository"
	"print-scheduler/pkg/logger"
	"print-scheduler/storage"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		ServiceName: "print-scheduler",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	var store repository.OrderStore
	ordersPath := ""
	if cfg.DatabaseURL != "" {
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		store = repository.NewPostgresStore(db)
		log.Info("Database connected successfully")
	} else {
		fileStore := repository.NewFileStore(cfg.OrdersFile, cfg.DevicesFile, cfg.MetricsFile)
		store = fileStore
		ordersPath = fileStore.OrdersPath()
		log.Info("Using file store", zap.String("orders_file", cfg.OrdersFile))
	}

	if cfg.UniofficeLicenseKey != "" {
		if err := ingest.SetLicenseKey(cfg.UniofficeLicenseKey); err != nil {
			log.Fatal("Failed to set spreadsheet license", zap.Error(err))
		}
	}

	// Initialize upload archive
	var archiver storage.Archiver
	if cfg.ArchiveS3Bucket != "" {
		s3Archiver, err := storage.NewS3Archiver(ctx, cfg.ArchiveS3Bucket, cfg.AWSRegion)
		if err != nil {
			log.Fatal("Failed to initialize S3 archive", zap.Error(err))
		}
		archiver = s3Archiver
	} else if cfg.ArchiveDir != "" {
		archiver = storage.NewLocalArchiver(cfg.ArchiveDir)
	}

	// Initialize optimizer and monitoring
	opt := optimizer.NewChangeoverOptimizer(optimizer.WithLogger(log.Named("optimizer")))
	tracker := monitoring.NewRunTracker(50)
	exporter := monitoring.NewMetricsExporter(tracker)
	monitor := monitoring.NewOrderMonitor(store, opt, exporter, cfg.RefreshInterval, log.Named("monitor"))
	go monitor.Start(ctx)

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, routes.Handlers{
		Dashboard: handlers.NewDashboardHandler(monitor, tracker, log),
		Orders:    handlers.NewOrderHandler(store, opt, exporter, log),
		Upload:    handlers.NewUploadHandler(store, opt, monitor, exporter, archiver, log),
		Repair:    handlers.NewRepairHandler(repair.NewRepairer(cfg.ExcelFile, log.Named("repair")), ordersPath, log),
		Metrics:   exporter.Handler(),
	}, cfg.FrontendDir)

	// Start server
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}
