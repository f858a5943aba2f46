package models

import (
	"math"

	"print-scheduler/pkg/json"
)

// JobRecord represents a single print order waiting to be sequenced
type JobRecord struct {
	ID            string `json:"order_id" yaml:"order_id"`
	ProductName   string `json:"product_name" yaml:"product_name"`
	ChangeoverKey string `json:"printing_method" yaml:"printing_method"` // Machine setup the job needs
	DueDate       string `json:"delivery_date" yaml:"delivery_date"`     // Opaque token, compared as text
}

// Metrics reports changeover counts for one optimization run
type Metrics struct {
	ChangeoversBefore int     `json:"changeover_before"`
	ChangeoversAfter  int     `json:"changeover_after"`
	ReductionRatio    float64 `json:"-"` // Full precision, in [0, 1]
}

// MarshalJSON emits the reduction ratio rounded for display
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ChangeoversBefore int     `json:"changeover_before"`
		ChangeoversAfter  int     `json:"changeover_after"`
		ReductionPct      float64 `json:"changeover_reduction_pct"`
	}{m.ChangeoversBefore, m.ChangeoversAfter, m.RoundedReduction()})
}

// UnmarshalJSON reads the rounded form written by MarshalJSON
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw struct {
		ChangeoversBefore int     `json:"changeover_before"`
		ChangeoversAfter  int     `json:"changeover_after"`
		ReductionPct      float64 `json:"changeover_reduction_pct"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ChangeoversBefore = raw.ChangeoversBefore
	m.ChangeoversAfter = raw.ChangeoversAfter
	m.ReductionRatio = raw.ReductionPct
	return nil
}

// RoundedReduction returns the reduction ratio rounded to 2 decimal places
func (m Metrics) RoundedReduction() float64 {
	return RoundRatio(m.ReductionRatio)
}

// RoundRatio rounds a ratio to 2 decimal places, halves to even
func RoundRatio(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// OptimizationResult is the output of the changeover optimizer
type OptimizationResult struct {
	OrderedJobs []JobRecord `json:"optimized_orders"`
	Metrics     Metrics     `json:"metrics"`
	Rejected    int         `json:"rejected"` // Records dropped by validation
	Degraded    bool        `json:"degraded"` // Identity fallback was used
}

// IdentityResult returns the no-op result for a batch
func IdentityResult(batch []JobRecord) OptimizationResult {
	jobs := make([]JobRecord, len(batch))
	copy(jobs, batch)
	return OptimizationResult{
		OrderedJobs: jobs,
		Metrics: Metrics{
			ChangeoversBefore: len(batch),
			ChangeoversAfter:  len(batch),
		},
		Degraded: true,
	}
}
