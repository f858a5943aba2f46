package optimizer

import (
	"fmt"

	"print-scheduler/core/models"

	"go.uber.org/zap"
)

// ChangeoverOptimizer reorders a batch of print orders so that orders sharing
// a printing method run back to back. It keeps no state between calls and is
// safe for concurrent use.
type ChangeoverOptimizer struct {
	validator *Validator
	sequencer *Sequencer
	log       *zap.Logger
	less      DueDateLess

	group func([]models.JobRecord) *ChangeoverGroups
}

// Option configures a ChangeoverOptimizer
type Option func(*ChangeoverOptimizer)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(o *ChangeoverOptimizer) {
		if log != nil {
			o.log = log
		}
	}
}

// WithDueDateLess replaces the delivery date comparator
func WithDueDateLess(less DueDateLess) Option {
	return func(o *ChangeoverOptimizer) {
		o.less = less
	}
}

// WithGrouper replaces the grouping step
func WithGrouper(group func([]models.JobRecord) *ChangeoverGroups) Option {
	return func(o *ChangeoverOptimizer) {
		if group != nil {
			o.group = group
		}
	}
}

// NewChangeoverOptimizer creates a new changeover optimizer
func NewChangeoverOptimizer(opts ...Option) *ChangeoverOptimizer {
	o := &ChangeoverOptimizer{
		log:   zap.NewNop(),
		less:  LexicographicDueDate,
		group: GroupByChangeover,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.validator = NewValidator(o.log)
	o.sequencer = NewSequencer(o.less, o.log)
	return o
}

// Optimize sequences typed orders. It never fails: if the batch cannot be
// processed the identity result is returned with Degraded set.
func (o *ChangeoverOptimizer) Optimize(batch []models.JobRecord) models.OptimizationResult {
	validated := o.validator.ValidateJobs(batch)
	return o.optimizeValidated(validated)
}

// OptimizeRaw validates undecoded records and sequences the usable ones
func (o *ChangeoverOptimizer) OptimizeRaw(raw []models.RawRecord) models.OptimizationResult {
	validated := o.validator.ValidateRecords(raw)
	return o.optimizeValidated(validated)
}

func (o *ChangeoverOptimizer) optimizeValidated(validated ValidationResult) (result models.OptimizationResult) {
	jobs := validated.Jobs

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Changeover optimization failed, returning orders unchanged",
				zap.Int("orders", len(jobs)),
				zap.Error(fmt.Errorf("%v", r)))
			result = models.IdentityResult(jobs)
			result.Rejected = validated.Rejected
		}
	}()

	if len(jobs) == 0 {
		o.log.Warn("Order batch is empty, nothing to optimize",
			zap.Int("rejected", validated.Rejected))
		return models.OptimizationResult{
			OrderedJobs: []models.JobRecord{},
			Rejected:    validated.Rejected,
		}
	}

	groups := o.group(jobs)
	o.log.Info("Grouped orders by printing method",
		zap.Int("orders", len(jobs)),
		zap.Int("groups", groups.Len()),
		zap.Int("missing_printing_method", validated.MissingKey))

	result = o.sequencer.Sequence(groups, len(jobs))
	result.Rejected = validated.Rejected

	o.log.Info("Changeover optimization complete",
		zap.Int("changeover_before", result.Metrics.ChangeoversBefore),
		zap.Int("changeover_after", result.Metrics.ChangeoversAfter),
		zap.Float64("changeover_reduction_pct", result.Metrics.RoundedReduction()))

	return result
}
