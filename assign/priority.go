package assign

import (
	"sort"

	"github.com/openroad/roadcall/jobs"
)

// OrderByPriority returns jobs sorted for processing under contention:
// descending by configured class weight, then oldest first, then by ID. An
// emergency job is offered a contractor before a standard job even when the
// standard job aged first.
func OrderByPriority(list []*jobs.Job, weights map[string]int) []*jobs.Job {
	sorted := make([]*jobs.Job, len(list))
	copy(sorted, list)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		wa, wb := weights[string(a.PriorityClass)], weights[string(b.PriorityClass)]
		if wa != wb {
			return wa > wb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return sorted
}
