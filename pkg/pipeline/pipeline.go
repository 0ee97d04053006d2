// Package pipeline runs a dataset through the scheduler and packages the
// outcome for the CLI and the HTTP API.
//
// Both entry points share one code path so that a dataset scheduled from the
// command line and the same dataset posted to the server produce identical
// results, hit the same cache entries and emit the same events.
//
// # Stages
//
//  1. Validate: apply defaults and reject bad options
//  2. Schedule: greedy construction followed by the selected refiner
//  3. Report: derive drive metrics and the per-request visit steps
//  4. Render: optional DOT and SVG drawings of the head path
//
// Results of deterministic runs are cached by dataset content and options.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Execute(ctx, ds, pipeline.Options{
//	    Algorithm:  "tabu",
//	    Iterations: 200,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Schedule.IDs)
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tapesched/pkg/cache"
	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/report"
	"github.com/matzehuels/tapesched/pkg/schedule"
	"github.com/matzehuels/tapesched/pkg/tape"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultAlgorithm is the refiner used when none is named.
	DefaultAlgorithm = schedule.AlgorithmAnnealing

	// DefaultSeed seeds the annealing RNG when no seed is given.
	DefaultSeed = schedule.DefaultSeed
)

// Format constants for rendered artifacts.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one scheduling run.
// It is read from JSON API requests and from the TOML config file.
type Options struct {
	// Search options
	Algorithm   string        `json:"algorithm,omitempty" toml:"algorithm"`
	Iterations  int           `json:"iterations,omitempty" toml:"iterations"`
	Seed        uint64        `json:"seed,omitempty" toml:"seed"`
	TimeLimit   time.Duration `json:"time_limit,omitempty" toml:"time_limit"`
	TabuSize    int           `json:"tabu_size,omitempty" toml:"tabu_size"`
	Temperature float64       `json:"temperature,omitempty" toml:"temperature"`
	CoolingRate float64       `json:"cooling_rate,omitempty" toml:"cooling_rate"`

	// Cost model options
	WrapCost        uint32 `json:"wrap_cost,omitempty" toml:"wrap_cost"`
	LPosCost        uint32 `json:"lpos_cost,omitempty" toml:"lpos_cost"`
	ReadCostPerLPos uint32 `json:"read_cost,omitempty" toml:"read_cost"`
	MaxBatchSize    int    `json:"max_batch_size,omitempty" toml:"max_batch_size"`

	// Output options
	Formats  []string `json:"formats,omitempty" toml:"formats"`
	Detailed bool     `json:"detailed,omitempty" toml:"detailed"`
	Refresh  bool     `json:"refresh,omitempty" toml:"-"`

	// Runtime options (not serialized)
	Logger   *log.Logger           `json:"-" toml:"-"`
	Refiner  schedule.Refiner      `json:"-" toml:"-"`
	Progress schedule.ProgressFunc `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run. Cached results get a fresh id on every hit.
	RunID string `json:"run_id"`

	// Dataset is the dataset name and DatasetHash its content hash.
	Dataset     string `json:"dataset"`
	DatasetHash string `json:"dataset_hash"`

	// Head is where the tape head started.
	Head tape.HeadPosition `json:"head"`

	// Schedule is the visit order and its cost.
	Schedule schedule.Result `json:"schedule"`

	// Metrics and Steps describe what the schedule does to the drive.
	Metrics report.Metrics `json:"metrics"`
	Steps   []report.Step  `json:"steps"`

	// Artifacts contains rendered outputs keyed by format. They are never
	// cached.
	Artifacts map[string][]byte `json:"-"`

	// CacheHit reports whether the schedule came from the cache.
	CacheHit bool `json:"cache_hit"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateAlgorithm checks that name is a known refiner. Matching ignores
// case and surrounding space.
func ValidateAlgorithm(name string) error {
	if !slices.Contains(schedule.Algorithms, strings.ToLower(strings.TrimSpace(name))) {
		return errs.New(errs.ErrCodeInvalidConfig, "invalid algorithm: %q (must be one of: %s)",
			name, strings.Join(schedule.Algorithms, ", "))
	}
	return nil
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidConfig, "invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetSearchDefaults()
	o.SetCostDefaults()

	if o.Refiner == nil {
		if err := ValidateAlgorithm(o.Algorithm); err != nil {
			return err
		}
	}
	switch {
	case o.Iterations < 0:
		return errs.New(errs.ErrCodeInvalidConfig, "iterations must not be negative, got %d", o.Iterations)
	case o.TimeLimit < 0:
		return errs.New(errs.ErrCodeInvalidConfig, "time limit must not be negative, got %s", o.TimeLimit)
	case o.MaxBatchSize < 0:
		return errs.New(errs.ErrCodeInvalidConfig, "max batch size must not be negative, got %d", o.MaxBatchSize)
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetSearchDefaults fills in the refiner selection. Iteration counts and
// temperatures are left at zero so each refiner applies its own defaults.
func (o *Options) SetSearchDefaults() {
	o.Algorithm = strings.ToLower(strings.TrimSpace(o.Algorithm))
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetCostDefaults fills in the seek and read prices.
func (o *Options) SetCostDefaults() {
	if o.WrapCost == 0 {
		o.WrapCost = tape.DefaultWrapCost
	}
	if o.LPosCost == 0 {
		o.LPosCost = tape.DefaultLPosCost
	}
	if o.ReadCostPerLPos == 0 {
		o.ReadCostPerLPos = report.DefaultReadCostPerLPos
	}
	if o.MaxBatchSize == 0 {
		o.MaxBatchSize = tape.DefaultMaxBatchSize
	}
}

// Oracle returns the seek-cost oracle described by the cost options.
func (o *Options) Oracle() tape.SeekOracle {
	return tape.LinearSeek{WrapCost: o.WrapCost, LPosCost: o.LPosCost}
}

// RefinerConfig returns the refiner configuration for schedule.NewRefiner.
func (o *Options) RefinerConfig() schedule.Config {
	return schedule.Config{
		Algorithm:   o.Algorithm,
		Iterations:  o.Iterations,
		Seed:        o.Seed,
		TimeLimit:   o.TimeLimit,
		TabuSize:    o.TabuSize,
		Temperature: o.Temperature,
		CoolingRate: o.CoolingRate,
		Progress:    o.Progress,
	}
}

// Cacheable reports whether a run with these options always produces the
// same schedule. Wall-clock limits and caller-supplied refiners do not.
func (o *Options) Cacheable() bool {
	return o.TimeLimit == 0 && o.Refiner == nil
}

// ResultKeyOpts returns cache key options for a scheduling result.
func (o *Options) ResultKeyOpts() cache.ResultKeyOpts {
	return cache.ResultKeyOpts{
		Algorithm:    o.Algorithm,
		Iterations:   o.Iterations,
		Seed:         o.Seed,
		TabuSize:     o.TabuSize,
		Temperature:  o.Temperature,
		CoolingRate:  o.CoolingRate,
		WrapCost:     o.WrapCost,
		LPosCost:     o.LPosCost,
		ReadCost:     o.ReadCostPerLPos,
		MaxBatchSize: o.MaxBatchSize,
	}
}
