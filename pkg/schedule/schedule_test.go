package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/tape"
)

func randomBatch(seed uint64, n int) tape.Batch {
	rng := NewRand(seed)
	reqs := make([]tape.Request, n)
	for i := range reqs {
		start := rng.Uint32N(20000)
		reqs[i] = tape.Request{
			ID:        uint32(100 + i),
			Wrap:      rng.Uint32N(4),
			StartLPos: start,
			EndLPos:   start + rng.Uint32N(500),
		}
	}
	return tape.NewBatch(reqs...)
}

func problem(batch tape.Batch) Problem {
	return Problem{
		Head:   tape.HeadPosition{Status: tape.HeadStatic},
		Batch:  batch,
		Oracle: tape.DefaultSeek(),
	}
}

func identity(n int) Schedule {
	s := make(Schedule, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func refiners(seed uint64) []Refiner {
	return []Refiner{
		&Annealing{Iterations: 3000, Seed: seed},
		&Tabu{Iterations: 30},
	}
}

func TestEvaluate(t *testing.T) {
	batch := tape.NewBatch(
		tape.Request{ID: 0, Wrap: 0, StartLPos: 0, EndLPos: 0},
		tape.Request{ID: 1, Wrap: 0, StartLPos: 100, EndLPos: 100},
	)
	p := problem(batch)

	assert.Equal(t, 100.0, Evaluate(p, Schedule{0, 1}))
	assert.Equal(t, 200.0, Evaluate(p, Schedule{1, 0}))
	assert.Equal(t, 0.0, Evaluate(p, Schedule{}))
}

func TestEvaluateChargesOnlySeeks(t *testing.T) {
	batch := tape.NewBatch(
		tape.Request{ID: 7, Wrap: 1, StartLPos: 10, EndLPos: 900},
		tape.Request{ID: 8, Wrap: 1, StartLPos: 950, EndLPos: 960},
	)
	p := problem(batch)
	p.Head = tape.HeadPosition{Wrap: 0, LPos: 0}

	// 1000 + 10 to the first start, then 50 from its end to the second start.
	assert.Equal(t, 1060.0, Evaluate(p, Schedule{0, 1}))
}

func TestGreedy(t *testing.T) {
	t.Run("nearest first", func(t *testing.T) {
		batch := tape.NewBatch(
			tape.Request{ID: 0, Wrap: 0, StartLPos: 0, EndLPos: 0},
			tape.Request{ID: 1, Wrap: 0, StartLPos: 100, EndLPos: 100},
		)
		got, err := Greedy(problem(batch))
		require.NoError(t, err)
		assert.Equal(t, Schedule{0, 1}, got)
	})

	t.Run("ties go to lowest index", func(t *testing.T) {
		batch := tape.NewBatch(
			tape.Request{ID: 5, Wrap: 0, StartLPos: 50, EndLPos: 50},
			tape.Request{ID: 6, Wrap: 0, StartLPos: 50, EndLPos: 50},
			tape.Request{ID: 7, Wrap: 0, StartLPos: 50, EndLPos: 50},
		)
		got, err := Greedy(problem(batch))
		require.NoError(t, err)
		assert.Equal(t, Schedule{0, 1, 2}, got)
	})

	t.Run("follows request ends", func(t *testing.T) {
		batch := tape.NewBatch(
			tape.Request{ID: 1, Wrap: 0, StartLPos: 10, EndLPos: 5000},
			tape.Request{ID: 2, Wrap: 0, StartLPos: 20, EndLPos: 30},
			tape.Request{ID: 3, Wrap: 0, StartLPos: 5100, EndLPos: 5200},
		)
		got, err := Greedy(problem(batch))
		require.NoError(t, err)
		assert.Equal(t, Schedule{0, 2, 1}, got)
	})

	t.Run("empty batch", func(t *testing.T) {
		got, err := Greedy(problem(tape.NewBatch()))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("count mismatch", func(t *testing.T) {
		batch := tape.Batch{Count: 5, Requests: randomBatch(1, 3).Requests}
		_, err := Greedy(problem(batch))
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrCodeInvalidBatch))
	})
}

func TestSwapMatchesEvaluate(t *testing.T) {
	p := problem(randomBatch(3, 25))
	st, err := newSearch(p, identity(25), 1, 0, nil)
	require.NoError(t, err)

	rng := NewRand(9)
	for k := 0; k < 500; k++ {
		i, j := rng.IntN(25), rng.IntN(25)
		if i == j {
			continue
		}
		st.curCost = st.swap(i, j)
		require.Equal(t, Evaluate(p, st.current), st.curCost, "after swapping %d and %d", i, j)
	}
}

func TestRefinersKeepPermutation(t *testing.T) {
	for _, size := range []int{2, 3, 10, 40} {
		p := problem(randomBatch(uint64(size), size))
		seed, err := Greedy(p)
		require.NoError(t, err)

		for _, r := range refiners(42) {
			got, err := r.Refine(context.Background(), p, seed)
			require.NoError(t, err, r.Name())
			require.NoError(t, ValidatePermutation(got, size), r.Name())
		}
	}
}

func TestRefinersNeverWorsen(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		p := problem(randomBatch(seed, 30))
		start := NewRand(seed).Perm(30)

		for _, r := range refiners(seed) {
			got, err := r.Refine(context.Background(), p, start)
			require.NoError(t, err)
			assert.LessOrEqual(t, Evaluate(p, got), Evaluate(p, start), "%s seed %d", r.Name(), seed)
		}
	}
}

func TestRefinersImproveReversedOrder(t *testing.T) {
	reqs := make([]tape.Request, 12)
	for i := range reqs {
		reqs[i] = tape.Request{ID: uint32(i), StartLPos: uint32(i * 100), EndLPos: uint32(i*100 + 10)}
	}
	p := problem(tape.NewBatch(reqs...))
	reversed := make(Schedule, len(reqs))
	for i := range reversed {
		reversed[i] = len(reqs) - 1 - i
	}

	// Swapping the first two entries already saves 20, so both refiners must
	// find something. A cold start keeps annealing close to the best.
	cold := []Refiner{
		&Annealing{Iterations: 3000, InitialTemperature: 1, Seed: 7},
		&Tabu{Iterations: 30},
	}
	for _, r := range cold {
		got, err := r.Refine(context.Background(), p, reversed)
		require.NoError(t, err)
		assert.Less(t, Evaluate(p, got), Evaluate(p, reversed), r.Name())
	}
}

func TestRefinersDoNotMutateInput(t *testing.T) {
	p := problem(randomBatch(11, 15))
	in := identity(15)
	batchBefore := p.Batch.Clone()

	for _, r := range refiners(11) {
		_, err := r.Refine(context.Background(), p, in)
		require.NoError(t, err)
		assert.Equal(t, identity(15), in, r.Name())
		assert.Equal(t, batchBefore, p.Batch, r.Name())
	}
}

func TestAnnealingDeterministic(t *testing.T) {
	p := problem(randomBatch(21, 40))
	start, err := Greedy(p)
	require.NoError(t, err)

	first, err := (&Annealing{Seed: 99}).Refine(context.Background(), p, start)
	require.NoError(t, err)
	for k := 0; k < 3; k++ {
		again, err := (&Annealing{Seed: 99}).Refine(context.Background(), p, start)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestTabuDeterministic(t *testing.T) {
	p := problem(randomBatch(22, 20))
	start := NewRand(5).Perm(20)

	first, err := (&Tabu{Iterations: 20}).Refine(context.Background(), p, start)
	require.NoError(t, err)
	again, err := (&Tabu{Iterations: 20}).Refine(context.Background(), p, start)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestRefinersDegenerateBatch(t *testing.T) {
	batch := tape.NewBatch(tape.Request{ID: 4, Wrap: 2, StartLPos: 30, EndLPos: 40})
	p := problem(batch)

	for _, r := range refiners(1) {
		got, err := r.Refine(context.Background(), p, Schedule{0})
		require.NoError(t, err)
		assert.Equal(t, Schedule{0}, got)
		assert.Equal(t, 2030.0, Evaluate(p, got))
	}
}

func TestRefinersRejectInvalidSchedule(t *testing.T) {
	p := problem(randomBatch(4, 4))

	for _, r := range refiners(1) {
		_, err := r.Refine(context.Background(), p, Schedule{0, 1, 1, 3})
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrCodeInvalidInput), r.Name())
	}
}

func TestRefinersCancelled(t *testing.T) {
	p := problem(randomBatch(8, 20))
	start := NewRand(8).Perm(20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, r := range refiners(8) {
		got, err := r.Refine(ctx, p, start)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, Schedule(start), got, r.Name())
	}
}

func TestRefinersStopAtTimeLimit(t *testing.T) {
	const limit = 50 * time.Millisecond
	p := problem(randomBatch(9, 300))
	seed, err := Greedy(p)
	require.NoError(t, err)

	for _, r := range []Refiner{
		&Annealing{Iterations: 1 << 30, Seed: 9, TimeLimit: limit},
		&Tabu{Iterations: 1 << 30, TimeLimit: limit},
	} {
		start := time.Now()
		got, err := r.Refine(context.Background(), p, seed)
		elapsed := time.Since(start)

		require.NoError(t, err, r.Name())
		assert.Less(t, elapsed, 5*time.Second, "%s ignored its time limit", r.Name())
		require.NoError(t, ValidatePermutation(got, 300), r.Name())
		assert.LessOrEqual(t, Evaluate(p, got), Evaluate(p, seed), r.Name())
	}
}

func TestTabuTableResetTerminates(t *testing.T) {
	// Table size one puts every ID into the same slot, so each mark makes
	// all swaps tabu and forces a reset on the following iteration.
	p := problem(randomBatch(13, 12))
	start := NewRand(13).Perm(12)

	got, err := (&Tabu{Iterations: 200, TableSize: 1}).Refine(context.Background(), p, start)
	require.NoError(t, err)
	require.NoError(t, ValidatePermutation(got, 12))
	assert.LessOrEqual(t, Evaluate(p, got), Evaluate(p, Schedule(start)))
}

func TestTabuTable(t *testing.T) {
	tt := newTabuTable(3)

	tt.mark(4)
	assert.True(t, tt.has(4))
	assert.True(t, tt.has(1), "ids sharing a slot are tabu together")
	assert.False(t, tt.has(2))

	tt.mark(5)
	tt.mark(6)
	assert.True(t, tt.has(5))
	assert.True(t, tt.has(6))

	tt.mark(8)
	assert.True(t, tt.has(8))
	assert.False(t, tt.has(4), "a full table is cleared before the next mark")
	assert.Equal(t, 1, tt.marks)
}

func TestRefinerValidation(t *testing.T) {
	p := problem(randomBatch(2, 5))
	s := identity(5)

	tests := []struct {
		name string
		r    Refiner
		code errs.Code
	}{
		{"negative iterations", &Annealing{Iterations: -1}, errs.ErrCodeInvalidConfig},
		{"cooling rate above one", &Annealing{CoolingRate: 1.5}, errs.ErrCodeInvalidConfig},
		{"negative temperature", &Annealing{InitialTemperature: -3}, errs.ErrCodeInvalidConfig},
		{"negative tabu size", &Tabu{TableSize: -1}, errs.ErrCodeAllocationFailure},
		{"negative tabu iterations", &Tabu{Iterations: -2}, errs.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Refine(context.Background(), p, s)
			require.Error(t, err)
			assert.Equal(t, tt.code, errs.GetCode(err))
		})
	}
}

func TestProgressReportsImprovements(t *testing.T) {
	p := problem(randomBatch(17, 25))
	start := NewRand(17).Perm(25)

	var events []Progress
	r := &Annealing{Seed: 3, Progress: func(pr Progress) { events = append(events, pr) }}
	got, err := r.Refine(context.Background(), p, start)
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Done)
	assert.Equal(t, Evaluate(p, got), last.BestCost)
	for k := 1; k < len(events); k++ {
		assert.LessOrEqual(t, events[k].BestCost, events[k-1].BestCost)
	}
}
