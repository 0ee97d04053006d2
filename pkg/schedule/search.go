package schedule

import (
	"context"
	"time"

	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/tape"
)

// maxWorkspace bounds the number of entries a refiner will allocate working
// copies for.
const maxWorkspace = 1 << 22

// Refiner improves an existing schedule.
//
// Implementations never modify the schedule they are given or the batch of
// the problem. The returned schedule is a permutation of the same indices and
// never costs more than the input. When ctx is cancelled the best schedule
// found so far is returned together with ctx.Err().
type Refiner interface {
	Name() string
	Refine(ctx context.Context, p Problem, s Schedule) (Schedule, error)
}

// Progress describes the state of a refiner run. It is delivered whenever
// the best schedule improves and once when the run ends.
type Progress struct {
	Iteration   int
	Cost        float64 // cost of the current schedule
	BestCost    float64
	Temperature float64 // zero for refiners without a temperature
	Done        bool
}

// ProgressFunc receives refiner progress.
type ProgressFunc func(Progress)

// search holds the state shared by the swap-based refiners: the current and
// best schedules with their costs, the iteration budget and the stop
// conditions. Candidate generation and acceptance live in the refiners.
type search struct {
	p    Problem
	reqs []tape.Request

	current  Schedule
	curCost  float64
	best     Schedule
	bestCost float64

	iterations int
	deadline   time.Time
	checkMask  int
	step       int
	progress   ProgressFunc
}

func newSearch(p Problem, s Schedule, iterations int, limit time.Duration, progress ProgressFunc) (*search, error) {
	if p.Oracle == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "seek oracle is nil")
	}
	if len(s) > maxWorkspace {
		return nil, errs.New(errs.ErrCodeAllocationFailure,
			"schedule of %d entries exceeds the working set limit of %d", len(s), maxWorkspace)
	}
	if err := ValidatePermutation(s, len(p.Batch.Requests)); err != nil {
		return nil, err
	}

	st := &search{
		p:          p,
		reqs:       p.Batch.Requests,
		current:    s.Clone(),
		best:       s.Clone(),
		iterations: iterations,
		progress:   progress,
	}
	if limit > 0 {
		st.deadline = time.Now().Add(limit)
	}
	st.curCost = Evaluate(p, st.current)
	st.bestCost = st.curCost
	return st, nil
}

// seekInto returns the cost of reaching the request at position k of the
// current schedule from the end of the one before it.
func (st *search) seekInto(k int) uint64 {
	from := st.p.Head
	if k > 0 {
		from = st.reqs[st.current[k-1]].End()
	}
	return uint64(st.p.Oracle.SeekCost(from, st.reqs[st.current[k]].Start()))
}

// around sums the transitions that a swap of positions i < j can change.
func (st *search) around(i, j int) uint64 {
	sum := st.seekInto(i)
	if i+1 < j {
		sum += st.seekInto(i + 1)
	}
	sum += st.seekInto(j)
	if j+1 < len(st.current) {
		sum += st.seekInto(j + 1)
	}
	return sum
}

// swap exchanges positions i and j of the current schedule in place and
// returns the cost of the result. Calling swap again with the same pair
// restores the previous schedule; the caller restores curCost.
func (st *search) swap(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	before := st.around(i, j)
	st.current[i], st.current[j] = st.current[j], st.current[i]
	after := st.around(i, j)
	return st.curCost + float64(after) - float64(before)
}

// improve records the current schedule as the new best.
func (st *search) improve(iter int, temp float64) {
	copy(st.best, st.current)
	st.bestCost = st.curCost
	st.report(iter, temp, false)
}

func (st *search) report(iter int, temp float64, done bool) {
	if st.progress == nil {
		return
	}
	st.progress(Progress{
		Iteration:   iter,
		Cost:        st.curCost,
		BestCost:    st.bestCost,
		Temperature: temp,
		Done:        done,
	})
}

// stop reports whether the run must end before the next iteration. The
// deadline is only consulted every checkMask+1 steps.
func (st *search) stop(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}
	st.step++
	if st.deadline.IsZero() || st.step&st.checkMask != 0 {
		return false, nil
	}
	return time.Now().After(st.deadline), nil
}

func (st *search) finish(iter int, temp float64, err error) (Schedule, error) {
	st.report(iter, temp, true)
	return st.best.Clone(), err
}

// passthrough is the refiner used when no refinement is requested.
type passthrough struct{}

func (passthrough) Name() string { return "greedy" }

func (passthrough) Refine(_ context.Context, p Problem, s Schedule) (Schedule, error) {
	if err := ValidatePermutation(s, len(p.Batch.Requests)); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}
