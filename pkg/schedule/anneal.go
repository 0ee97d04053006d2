package schedule

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	errs "github.com/matzehuels/tapesched/pkg/errors"
)

// Annealing defaults.
const (
	DefaultAnnealingIterations = 10000
	DefaultInitialTemperature  = 10000.0
	DefaultCoolingRate         = 0.995
)

// Annealing refines a schedule by simulated annealing over random swaps.
//
// Each iteration swaps two distinct random positions of the current
// schedule. The swap is kept when it beats the best cost seen so far, or
// otherwise with probability exp((best - candidate) / T). The reference is
// the best cost, not the current one, so the walk never drifts far above
// the best schedule. T starts at InitialTemperature and is multiplied by
// CoolingRate after every iteration.
//
// Zero values select the defaults. An Annealing value may be reused, but
// not concurrently when Rand is set.
type Annealing struct {
	Iterations         int
	InitialTemperature float64
	CoolingRate        float64

	// Rand supplies all randomness. When nil a generator is built from Seed.
	Rand *rand.Rand
	Seed uint64

	TimeLimit time.Duration
	Progress  ProgressFunc
}

var _ Refiner = (*Annealing)(nil)

// Name implements Refiner.
func (a *Annealing) Name() string { return "annealing" }

func (a *Annealing) validate() error {
	if a.Iterations < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "iterations must be non-negative, got %d", a.Iterations)
	}
	if a.InitialTemperature < 0 || math.IsNaN(a.InitialTemperature) || math.IsInf(a.InitialTemperature, 0) {
		return errs.New(errs.ErrCodeInvalidConfig, "initial temperature must be a finite non-negative number, got %v", a.InitialTemperature)
	}
	if a.CoolingRate < 0 || a.CoolingRate > 1 || math.IsNaN(a.CoolingRate) {
		return errs.New(errs.ErrCodeInvalidConfig, "cooling rate must be in (0, 1], got %v", a.CoolingRate)
	}
	if a.TimeLimit < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "time limit must be non-negative, got %v", a.TimeLimit)
	}
	return nil
}

// Refine implements Refiner.
func (a *Annealing) Refine(ctx context.Context, p Problem, s Schedule) (Schedule, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	iterations := a.Iterations
	if iterations == 0 {
		iterations = DefaultAnnealingIterations
	}
	temp := a.InitialTemperature
	if temp == 0 {
		temp = DefaultInitialTemperature
	}
	cooling := a.CoolingRate
	if cooling == 0 {
		cooling = DefaultCoolingRate
	}
	rng := a.Rand
	if rng == nil {
		rng = NewRand(a.Seed)
	}

	st, err := newSearch(p, s, iterations, a.TimeLimit, a.Progress)
	if err != nil {
		return nil, err
	}
	n := len(st.current)
	if n < 2 {
		return st.best.Clone(), nil
	}
	st.checkMask = 255

	iter := 0
	for ; iter < st.iterations; iter++ {
		if stop, err := st.stop(ctx); stop {
			return st.finish(iter, temp, err)
		}

		i := rng.IntN(n)
		j := rng.IntN(n - 1)
		if j >= i {
			j++
		}

		cand := st.swap(i, j)
		if cand < st.bestCost || rng.Float64() < math.Exp((st.bestCost-cand)/temp) {
			st.curCost = cand
			if cand < st.bestCost {
				st.improve(iter, temp)
			}
		} else {
			st.swap(i, j)
		}

		temp *= cooling
	}
	return st.finish(iter, temp, nil)
}
