package optimizer

import "print-scheduler/core/models"

// CalculateMetrics derives the changeover reduction for a run.
// Without batching every order is assumed to need its own changeover, and
// each group needs exactly one after batching.
func CalculateMetrics(changeoversBefore, changeoversAfter int) models.Metrics {
	m := models.Metrics{
		ChangeoversBefore: changeoversBefore,
		ChangeoversAfter:  changeoversAfter,
	}
	if changeoversBefore > 0 {
		m.ReductionRatio = float64(changeoversBefore-changeoversAfter) / float64(changeoversBefore)
	}
	return m
}
