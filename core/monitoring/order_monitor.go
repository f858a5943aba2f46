package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"print-scheduler/core/models"
	"print-scheduler/core/optimizer"
	"print-scheduler/core/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderMonitor periodically re-optimizes the stored orders and persists the
// resulting metrics snapshot for the dashboard
type OrderMonitor struct {
	store     repository.OrderStore
	optimizer *optimizer.ChangeoverOptimizer
	exporter  *MetricsExporter
	interval  time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewOrderMonitor creates a new order monitor
func NewOrderMonitor(
	store repository.OrderStore,
	opt *optimizer.ChangeoverOptimizer,
	exporter *MetricsExporter,
	interval time.Duration,
	log *zap.Logger,
) *OrderMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderMonitor{
		store:     store,
		optimizer: opt,
		exporter:  exporter,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Start runs the refresh loop until ctx is cancelled. A non-positive
// interval disables the loop.
func (om *OrderMonitor) Start(ctx context.Context) {
	if om.interval <= 0 {
		om.log.Info("Order refresh disabled")
		return
	}

	ticker := time.NewTicker(om.interval)
	defer ticker.Stop()

	om.log.Info("Order refresh started", zap.Duration("interval", om.interval))
	for {
		select {
		case <-ctx.Done():
			om.log.Info("Order refresh stopped")
			return
		case <-ticker.C:
			if _, err := om.Refresh(SourceRefresh); err != nil {
				om.log.Error("Failed to refresh order metrics", zap.Error(err))
			}
		}
	}
}

// Refresh optimizes the stored orders once and saves the metrics snapshot
func (om *OrderMonitor) Refresh(source string) (models.MetricsSnapshot, error) {
	raw, err := om.store.LoadOrders()
	if err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("failed to load orders: %w", err)
	}

	result := om.optimizer.OptimizeRaw(raw)
	if om.exporter != nil {
		om.exporter.Observe(source, result)
	}

	return om.Persist(result)
}

// Persist saves the snapshot for an optimization result under a new run id
func (om *OrderMonitor) Persist(result models.OptimizationResult) (models.MetricsSnapshot, error) {
	snapshot := models.NewMetricsSnapshot(uuid.New().String(), result.Metrics, om.now().UTC())
	if err := om.store.SaveMetrics(snapshot); err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("failed to save metrics: %w", err)
	}

	om.log.Info("Saved metrics snapshot",
		zap.String("run_id", snapshot.RunID),
		zap.Int("changeover_before", snapshot.ChangeoverBefore),
		zap.Int("changeover_after", snapshot.ChangeoverAfter),
		zap.Bool("degraded", result.Degraded))
	return snapshot, nil
}

// LatestSnapshot returns the stored snapshot, or the default one when none
// has been saved yet or the stored one cannot be decoded
func (om *OrderMonitor) LatestSnapshot() (models.MetricsSnapshot, error) {
	snapshot, err := om.store.LoadMetrics()
	if errors.Is(err, repository.ErrNotFound) {
		return models.DefaultMetricsSnapshot(), nil
	}
	if errors.Is(err, repository.ErrCorrupt) {
		om.log.Warn("Stored metrics are unreadable, serving defaults", zap.Error(err))
		return models.DefaultMetricsSnapshot(), nil
	}
	if err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("failed to load metrics: %w", err)
	}
	return *snapshot, nil
}
