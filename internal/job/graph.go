package job

import (
	"errors"
	"fmt"

	"github.com/gammazero/toposort"
)

// ErrCycle is returned when prerequisite links form a loop.
var ErrCycle = errors.New("prerequisite cycle")

// ValidateGraph orders jobs so every prerequisite precedes the jobs that
// need it. Prerequisites reachable from jobs are included even when not
// listed. Returns ErrCycle when the links loop.
func ValidateGraph(jobs []*Job) ([]*Job, error) {
	var edges []toposort.Edge
	seen := make(map[*Job]bool)
	queue := append([]*Job(nil), jobs...)

	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		if seen[j] {
			continue
		}
		seen[j] = true

		if len(j.preReqs) == 0 {
			// Edge from nil keeps isolated jobs in the result
			edges = append(edges, toposort.Edge{nil, j})
			continue
		}
		for _, pre := range j.preReqs {
			// Edge (pre, j) means pre must come before j
			edges = append(edges, toposort.Edge{pre, j})
			queue = append(queue, pre)
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}

	order := make([]*Job, 0, len(seen))
	for _, n := range sorted {
		if n != nil {
			order = append(order, n.(*Job))
		}
	}
	if len(order) != len(seen) {
		return nil, fmt.Errorf("%w: ordered %d of %d jobs", ErrCycle, len(order), len(seen))
	}
	return order, nil
}
