package optimizer

import (
	"fmt"
	"sort"

	"print-scheduler/core/models"

	"go.uber.org/zap"
)

// DueDateLess orders two delivery date tokens
type DueDateLess func(a, b string) bool

// LexicographicDueDate compares delivery dates as raw text. "6.9" sorts after
// "6.10" under this ordering; callers relying on calendar order must supply
// their own comparator.
func LexicographicDueDate(a, b string) bool {
	return a < b
}

// Sequencer sorts jobs inside each changeover group and concatenates the groups
type Sequencer struct {
	less DueDateLess
	log  *zap.Logger
}

// NewSequencer creates a new sequencer
func NewSequencer(less DueDateLess, log *zap.Logger) *Sequencer {
	if less == nil {
		less = LexicographicDueDate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{less: less, log: log}
}

// Sequence builds the optimized batch from grouped orders
func (s *Sequencer) Sequence(groups *ChangeoverGroups, changeoversBefore int) models.OptimizationResult {
	ordered := make([]models.JobRecord, 0, groups.Size())
	changeoversAfter := 0

	for _, key := range groups.Keys() {
		jobs, err := s.sortGroup(groups.Jobs(key))
		if err != nil {
			s.log.Error("Failed to sort printing method group, keeping input order",
				zap.String("printing_method", key),
				zap.Int("orders", len(jobs)),
				zap.Error(err))
		}

		ordered = append(ordered, jobs...)
		changeoversAfter++
	}

	return models.OptimizationResult{
		OrderedJobs: ordered,
		Metrics:     CalculateMetrics(changeoversBefore, changeoversAfter),
	}
}

// sortGroup stable-sorts a copy of jobs by delivery date. If the comparator
// panics the copy is returned in its original order.
func (s *Sequencer) sortGroup(jobs []models.JobRecord) (sorted []models.JobRecord, err error) {
	sorted = make([]models.JobRecord, len(jobs))
	copy(sorted, jobs)

	defer func() {
		if r := recover(); r != nil {
			copy(sorted, jobs)
			err = fmt.Errorf("due date comparison failed: %v", r)
		}
	}()

	sort.SliceStable(sorted, func(i, j int) bool {
		return s.less(sorted[i].DueDate, sorted[j].DueDate)
	})

	return sorted, nil
}
