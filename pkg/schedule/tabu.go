package schedule

import (
	"context"
	"time"

	errs "github.com/matzehuels/tapesched/pkg/errors"
)

// Tabu defaults.
const (
	DefaultTabuIterations = 100
	DefaultTabuTableSize  = 10
)

// Tabu refines a schedule by tabu search over the full swap neighbourhood.
//
// Each iteration evaluates every swap of two positions in the current
// schedule, skipping swaps that move a tabu request, and moves to the
// cheapest one even if it is worse than the current schedule. When that
// neighbour beats the best cost, it becomes the new best and the request
// that was first in the schedule before the move is marked tabu.
//
// The tabu table has TableSize slots addressed by request ID modulo
// TableSize, so distinct IDs may share a slot. After TableSize marks the
// table is cleared before the next mark is stored. If every swap is tabu
// the table is cleared and the iteration makes no move.
type Tabu struct {
	Iterations int
	TableSize  int

	TimeLimit time.Duration
	Progress  ProgressFunc
}

var _ Refiner = (*Tabu)(nil)

// Name implements Refiner.
func (t *Tabu) Name() string { return "tabu" }

func (t *Tabu) validate() error {
	if t.Iterations < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "iterations must be non-negative, got %d", t.Iterations)
	}
	if t.TableSize < 0 {
		return errs.New(errs.ErrCodeAllocationFailure, "tabu table size must be positive, got %d", t.TableSize)
	}
	if t.TimeLimit < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "time limit must be non-negative, got %v", t.TimeLimit)
	}
	return nil
}

// Refine implements Refiner.
func (t *Tabu) Refine(ctx context.Context, p Problem, s Schedule) (Schedule, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	iterations := t.Iterations
	if iterations == 0 {
		iterations = DefaultTabuIterations
	}
	size := t.TableSize
	if size == 0 {
		size = DefaultTabuTableSize
	}

	st, err := newSearch(p, s, iterations, t.TimeLimit, t.Progress)
	if err != nil {
		return nil, err
	}
	n := len(st.current)
	if n < 2 {
		return st.best.Clone(), nil
	}

	table := newTabuTable(size)
	iter := 0
	for ; iter < st.iterations; iter++ {
		if stop, err := st.stop(ctx); stop {
			return st.finish(iter, 0, err)
		}

		bi, bj := -1, -1
		var bestNeighbour float64
		for i := 0; i < n-1; i++ {
			if table.has(st.reqs[st.current[i]].ID) {
				continue
			}
			for j := i + 1; j < n; j++ {
				if table.has(st.reqs[st.current[j]].ID) {
					continue
				}
				c := st.swap(i, j)
				st.swap(i, j)
				if bi < 0 || c < bestNeighbour {
					bi, bj, bestNeighbour = i, j, c
				}
			}
		}

		if bi < 0 {
			table.clear()
			continue
		}

		improves := bestNeighbour < st.bestCost
		lead := st.reqs[st.current[0]].ID
		st.swap(bi, bj)
		st.curCost = bestNeighbour
		if improves {
			st.improve(iter, 0)
			table.mark(lead)
		}
	}
	return st.finish(iter, 0, nil)
}

// tabuTable is a fixed set of slots keyed by request ID modulo its size.
type tabuTable struct {
	slots []bool
	marks int
}

func newTabuTable(size int) *tabuTable {
	return &tabuTable{slots: make([]bool, size)}
}

func (t *tabuTable) slot(id uint32) int {
	return int(id % uint32(len(t.slots)))
}

func (t *tabuTable) has(id uint32) bool {
	return t.slots[t.slot(id)]
}

// mark stores id, clearing the table first when it already holds as many
// marks as it has slots.
func (t *tabuTable) mark(id uint32) {
	if t.marks >= len(t.slots) {
		t.clear()
	}
	t.slots[t.slot(id)] = true
	t.marks++
}

func (t *tabuTable) clear() {
	clear(t.slots)
	t.marks = 0
}
