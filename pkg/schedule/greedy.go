package schedule

import (
	errs "github.com/matzehuels/tapesched/pkg/errors"
)

// Greedy builds a nearest-neighbour schedule. Starting from p.Head it
// repeatedly visits the unvisited request whose start is cheapest to reach,
// then moves the simulated head to that request's end. Ties go to the lowest
// index, so the result is deterministic.
//
// Greedy fails with INVALID_BATCH when the declared count disagrees with the
// supplied requests. It never returns a partial schedule.
func Greedy(p Problem) (Schedule, error) {
	if p.Batch.Count != len(p.Batch.Requests) {
		return nil, errs.New(errs.ErrCodeInvalidBatch,
			"declared request count %d does not match %d supplied requests", p.Batch.Count, len(p.Batch.Requests))
	}
	if p.Oracle == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "seek oracle is nil")
	}

	reqs := p.Batch.Requests
	n := len(reqs)
	out := make(Schedule, 0, n)
	visited := make([]bool, n)
	head := p.Head

	for len(out) < n {
		next := -1
		var nextCost uint32
		for i, r := range reqs {
			if visited[i] {
				continue
			}
			c := p.Oracle.SeekCost(head, r.Start())
			if next < 0 || c < nextCost {
				next, nextCost = i, c
			}
		}
		visited[next] = true
		out = append(out, next)
		head = reqs[next].End()
	}
	return out, nil
}
