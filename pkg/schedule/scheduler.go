package schedule

import (
	"context"
	"strings"
	"time"

	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/tape"
)

// Refiner names accepted by NewRefiner.
const (
	AlgorithmAnnealing = "annealing"
	AlgorithmTabu      = "tabu"
	AlgorithmGreedy    = "greedy"
)

// Algorithms lists the refiner names in display order.
var Algorithms = []string{AlgorithmAnnealing, AlgorithmTabu, AlgorithmGreedy}

// Config selects and tunes a refiner. Zero values select the refiner's
// defaults.
type Config struct {
	Algorithm   string
	Iterations  int
	Seed        uint64
	TimeLimit   time.Duration
	TabuSize    int
	Temperature float64
	CoolingRate float64
	Progress    ProgressFunc
}

// NewRefiner builds the refiner named by cfg.Algorithm. An empty name selects
// annealing. "greedy" returns a refiner that keeps the greedy schedule.
func NewRefiner(cfg Config) (Refiner, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Algorithm)) {
	case "", AlgorithmAnnealing:
		a := &Annealing{
			Iterations:         cfg.Iterations,
			InitialTemperature: cfg.Temperature,
			CoolingRate:        cfg.CoolingRate,
			Seed:               cfg.Seed,
			TimeLimit:          cfg.TimeLimit,
			Progress:           cfg.Progress,
		}
		if err := a.validate(); err != nil {
			return nil, err
		}
		return a, nil
	case AlgorithmTabu:
		t := &Tabu{
			Iterations: cfg.Iterations,
			TableSize:  cfg.TabuSize,
			TimeLimit:  cfg.TimeLimit,
			Progress:   cfg.Progress,
		}
		if err := t.validate(); err != nil {
			return nil, err
		}
		return t, nil
	case AlgorithmGreedy:
		return passthrough{}, nil
	default:
		return nil, errs.New(errs.ErrCodeInvalidConfig,
			"unknown algorithm %q (want one of %s)", cfg.Algorithm, strings.Join(Algorithms, ", "))
	}
}

// Result is the outcome of one scheduling run.
type Result struct {
	Sequence    Schedule      `json:"sequence"`
	IDs         []uint32      `json:"ids"`
	Cost        float64       `json:"cost"`
	InitialCost float64       `json:"initial_cost"`
	Refiner     string        `json:"refiner"`
	Duration    time.Duration `json:"duration"`
}

// Scheduler runs the greedy constructor followed by exactly one refiner.
type Scheduler struct {
	// Oracle prices head movement. Nil selects tape.DefaultSeek.
	Oracle tape.SeekOracle
	// Refiner improves the greedy schedule. Nil keeps the greedy schedule.
	Refiner Refiner
	// MaxBatchSize bounds the batch. Zero selects tape.DefaultMaxBatchSize.
	MaxBatchSize int
}

// Schedule validates the batch, builds a greedy schedule, refines it and
// returns the result. The batch is not modified.
//
// If ctx is cancelled during refinement, Schedule returns the best result
// found so far together with the context error.
func (s *Scheduler) Schedule(ctx context.Context, head tape.HeadPosition, batch tape.Batch) (Result, error) {
	start := time.Now()

	oracle := s.Oracle
	if oracle == nil {
		oracle = tape.DefaultSeek()
	}
	p := Problem{Head: head, Batch: batch, Oracle: oracle}
	if err := p.Validate(s.MaxBatchSize); err != nil {
		return Result{}, err
	}

	seq, err := Greedy(p)
	if err != nil {
		return Result{}, err
	}
	initial := Evaluate(p, seq)

	refiner := s.Refiner
	if refiner == nil {
		refiner = passthrough{}
	}
	refined, err := refiner.Refine(ctx, p, seq)
	if refined == nil {
		if err == nil {
			err = errs.New(errs.ErrCodeInternal, "refiner %s returned no schedule", refiner.Name())
		}
		return Result{}, err
	}

	return Result{
		Sequence:    refined,
		IDs:         batch.IDs(refined),
		Cost:        Evaluate(p, refined),
		InitialCost: initial,
		Refiner:     refiner.Name(),
		Duration:    time.Since(start),
	}, err
}
