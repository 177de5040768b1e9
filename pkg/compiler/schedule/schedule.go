// Package schedule orders a batch of claimed compilations for dispatch:
// creation order within one experiment, round-robin across experiments
// (spec.md §4.3). This runs after store.Compilations().ClaimPending,
// which only guarantees the claim itself is race-free, not the order
// builds start in.
package schedule

import (
	"sort"

	"github.com/netunicorn/netunicorn/pkg/domain"
)

// Order returns compilations reordered: within each experiment, oldest
// CreatedAt first; across experiments, round-robin (one compilation per
// experiment per round, experiments visited in first-seen order).
func Order(compilations []domain.Compilation) []domain.Compilation {
	byExperiment := make(map[string][]domain.Compilation)
	var experimentOrder []string
	for _, c := range compilations {
		if _, seen := byExperiment[c.ExperimentID]; !seen {
			experimentOrder = append(experimentOrder, c.ExperimentID)
		}
		byExperiment[c.ExperimentID] = append(byExperiment[c.ExperimentID], c)
	}
	for _, id := range experimentOrder {
		lane := byExperiment[id]
		sort.SliceStable(lane, func(i, j int) bool { return lane[i].CreatedAt < lane[j].CreatedAt })
		byExperiment[id] = lane
	}

	out := make([]domain.Compilation, 0, len(compilations))
	for {
		dispatchedThisRound := false
		for _, id := range experimentOrder {
			lane := byExperiment[id]
			if len(lane) == 0 {
				continue
			}
			out = append(out, lane[0])
			byExperiment[id] = lane[1:]
			dispatchedThisRound = true
		}
		if !dispatchedThisRound {
			break
		}
	}
	return out
}
