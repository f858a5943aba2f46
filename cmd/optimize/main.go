package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"print-scheduler/core/models"
	"print-scheduler/core/monitoring"
	"print-scheduler/core/optimizer"
	"print-scheduler/core/repository"
	"print-scheduler/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	ordersFile := flag.String("orders", "parsed_orders.json", "orders file to optimize")
	metricsFile := flag.String("metrics", "metrics.json", "where to write the metrics snapshot")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log, err := logger.New(logger.Config{LogLevel: *logLevel, ServiceName: "print-optimize"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*ordersFile, *metricsFile, log); err != nil {
		fmt.Fprintf(os.Stderr, "Optimization failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ordersFile, metricsFile string, log *zap.Logger) error {
	devicesFile := filepath.Join(filepath.Dir(ordersFile), "device_list.json")
	store := repository.NewFileStore(ordersFile, devicesFile, metricsFile)

	raw, err := store.LoadOrders()
	if err != nil {
		return err
	}

	opt := optimizer.NewChangeoverOptimizer(optimizer.WithLogger(log))
	result := opt.OptimizeRaw(raw)

	monitor := monitoring.NewOrderMonitor(store, opt, nil, 0, log)
	snapshot, err := monitor.Persist(result)
	if err != nil {
		return err
	}

	printSummary(result, snapshot)
	return nil
}

func printSummary(result models.OptimizationResult, snapshot models.MetricsSnapshot) {
	fmt.Printf("Orders:              %d\n", len(result.OrderedJobs))
	if result.Rejected > 0 {
		fmt.Printf("Rejected records:    %d\n", result.Rejected)
	}
	fmt.Printf("Changeovers before:  %d\n", result.Metrics.ChangeoversBefore)
	fmt.Printf("Changeovers after:   %d\n", result.Metrics.ChangeoversAfter)
	fmt.Printf("Reduction:           %.2f%%\n", result.Metrics.RoundedReduction()*100)
	if result.Degraded {
		fmt.Println("Warning: optimization failed, orders were left in their original sequence")
	}
	fmt.Printf("Metrics saved:       run %s\n", snapshot.RunID)
}
