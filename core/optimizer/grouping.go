package optimizer

import "print-scheduler/core/models"

// ChangeoverGroups partitions orders by changeover key. Keys iterate in the
// order they were first seen in the input batch.
type ChangeoverGroups struct {
	keys   []string
	groups map[string][]models.JobRecord
}

// GroupByChangeover groups orders by printing method in a single pass
func GroupByChangeover(jobs []models.JobRecord) *ChangeoverGroups {
	g := &ChangeoverGroups{
		groups: make(map[string][]models.JobRecord),
	}

	for _, job := range jobs {
		key := job.ChangeoverKey
		if _, seen := g.groups[key]; !seen {
			g.keys = append(g.keys, key)
		}
		g.groups[key] = append(g.groups[key], job)
	}

	return g
}

// Keys returns the group keys in first-appearance order
func (g *ChangeoverGroups) Keys() []string {
	keys := make([]string, len(g.keys))
	copy(keys, g.keys)
	return keys
}

// Jobs returns the orders grouped under key, in input order
func (g *ChangeoverGroups) Jobs(key string) []models.JobRecord {
	return g.groups[key]
}

// Len returns the number of groups
func (g *ChangeoverGroups) Len() int {
	return len(g.keys)
}

// Size returns the number of orders across all groups
func (g *ChangeoverGroups) Size() int {
	n := 0
	for _, jobs := range g.groups {
		n += len(jobs)
	}
	return n
}
