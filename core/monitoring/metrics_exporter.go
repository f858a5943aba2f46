package monitoring

import (
	"net/http"

	"print-scheduler/core/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sources of an optimization run, used as the metric label
const (
	SourceAPI     = "api"
	SourceUpload  = "upload"
	SourceRefresh = "refresh"
	SourceStored  = "stored"
)

// MetricsExporter exports optimizer metrics for Prometheus
type MetricsExporter struct {
	registry *prometheus.Registry
	tracker  *RunTracker

	runs      *prometheus.CounterVec
	degraded  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	before    *prometheus.GaugeVec
	after     *prometheus.GaugeVec
	reduction *prometheus.HistogramVec
}

// NewMetricsExporter creates a new metrics exporter with its own registry
func NewMetricsExporter(tracker *RunTracker) *MetricsExporter {
	me := &MetricsExporter{
		registry: prometheus.NewRegistry(),
		tracker:  tracker,
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "print_optimizer_runs_total",
				Help: "Optimization runs by source",
			},
			[]string{"source"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "print_optimizer_degraded_runs_total",
				Help: "Runs that fell back to the original order",
			},
			[]string{"source"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "print_optimizer_rejected_records_total",
				Help: "Order records dropped by validation",
			},
			[]string{"source"},
		),
		before: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "print_optimizer_changeovers_before",
				Help: "Changeovers in the most recent batch before optimization",
			},
			[]string{"source"},
		),
		after: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "print_optimizer_changeovers_after",
				Help: "Changeovers in the most recent batch after optimization",
			},
			[]string{"source"},
		),
		reduction: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "print_optimizer_changeover_reduction_ratio",
				Help:    "Fraction of changeovers removed per run",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"source"},
		),
	}

	me.registry.MustRegister(
		me.runs,
		me.degraded,
		me.rejected,
		me.before,
		me.after,
		me.reduction,
		collectors.NewGoCollector(),
	)
	return me
}

// Observe records the outcome of one optimization run
func (me *MetricsExporter) Observe(source string, result models.OptimizationResult) {
	me.runs.WithLabelValues(source).Inc()
	if result.Degraded {
		me.degraded.WithLabelValues(source).Inc()
	}
	me.rejected.WithLabelValues(source).Add(float64(result.Rejected))
	me.before.WithLabelValues(source).Set(float64(result.Metrics.ChangeoversBefore))
	me.after.WithLabelValues(source).Set(float64(result.Metrics.ChangeoversAfter))
	me.reduction.WithLabelValues(source).Observe(result.Metrics.ReductionRatio)

	if me.tracker != nil {
		me.tracker.Record(source, result)
	}
}

// Registry returns the registry holding the optimizer collectors
func (me *MetricsExporter) Registry() *prometheus.Registry {
	return me.registry
}

// Handler serves the registry in the Prometheus exposition format
func (me *MetricsExporter) Handler() http.Handler {
	return promhttp.HandlerFor(me.registry, promhttp.HandlerOpts{})
}
