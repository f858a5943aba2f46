package monitoring

import (
	"sync"
	"time"

	"print-scheduler/core/models"
)

// RunSummary describes one optimization run
type RunSummary struct {
	Source     string         `json:"source"`
	Metrics    models.Metrics `json:"metrics"`
	Orders     int            `json:"orders"`
	Rejected   int            `json:"rejected"`
	Degraded   bool           `json:"degraded"`
	FinishedAt time.Time      `json:"finished_at"`
}

// RunTracker keeps the most recent optimization runs in memory
type RunTracker struct {
	runs  []RunSummary
	limit int
	mu    sync.RWMutex
	now   func() time.Time
}

// NewRunTracker creates a tracker that remembers up to limit runs
func NewRunTracker(limit int) *RunTracker {
	if limit <= 0 {
		limit = 20
	}
	return &RunTracker{
		runs:  make([]RunSummary, 0, limit),
		limit: limit,
		now:   time.Now,
	}
}

// Record stores a summary of the run, dropping the oldest when full
func (rt *RunTracker) Record(source string, result models.OptimizationResult) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if len(rt.runs) == rt.limit {
		copy(rt.runs, rt.runs[1:])
		rt.runs = rt.runs[:len(rt.runs)-1]
	}
	rt.runs = append(rt.runs, RunSummary{
		Source:     source,
		Metrics:    result.Metrics,
		Orders:     len(result.OrderedJobs),
		Rejected:   result.Rejected,
		Degraded:   result.Degraded,
		FinishedAt: rt.now(),
	})
}

// LastRun returns the most recent run, if any
func (rt *RunTracker) LastRun() (RunSummary, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if len(rt.runs) == 0 {
		return RunSummary{}, false
	}
	return rt.runs[len(rt.runs)-1], true
}

// Runs returns the remembered runs, newest last
func (rt *RunTracker) Runs() []RunSummary {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]RunSummary, len(rt.runs))
	copy(out, rt.runs)
	return out
}
