package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/tapesched/pkg/cache"
	"github.com/matzehuels/tapesched/pkg/dataset"
	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/observability"
	"github.com/matzehuels/tapesched/pkg/report"
	"github.com/matzehuels/tapesched/pkg/schedule"
)

// cacheKeyType labels result entries in cache hooks.
const cacheKeyType = "result"

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so that caching and reporting behave the same.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute schedules ds and returns the result with its drive metrics.
//
// If ctx is cancelled while the refiner runs, Execute returns the best
// result found so far together with the context error. Such results are
// not cached.
func (r *Runner) Execute(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	if ds == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "dataset is nil")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "invalid options")
	}

	hash := ds.Hash()
	key := r.Keyer.ResultKey(hash, opts.ResultKeyOpts())

	res, hit := r.lookup(ctx, key, opts)
	if !hit {
		var err error
		if res, err = r.schedule(ctx, ds, opts); res == nil {
			return nil, err
		}
		res.Dataset = ds.Name
		res.DatasetHash = hash
		if err != nil {
			res.RunID = uuid.NewString()
			return res, err
		}
		r.store(ctx, key, res, opts)
	}
	res.RunID = uuid.NewString()
	res.Dataset = ds.Name

	if len(opts.Formats) > 0 {
		renderStart := time.Now()
		artifacts, err := Render(ctx, ds, res, opts)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "render")
		}
		res.Artifacts = artifacts
		opts.Logger.Info("rendered outputs",
			"formats", opts.Formats,
			"duration", time.Since(renderStart))
	}
	return res, nil
}

// schedule runs the scheduler and the report stage.
func (r *Runner) schedule(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	refiner, err := r.refiner(ctx, opts)
	if err != nil {
		return nil, err
	}

	hooks := observability.Scheduler()
	hooks.OnScheduleStart(ctx, ds.Name, ds.Batch.Len(), refiner.Name())

	s := schedule.Scheduler{
		Oracle:       opts.Oracle(),
		Refiner:      refiner,
		MaxBatchSize: opts.MaxBatchSize,
	}
	out, err := s.Schedule(ctx, ds.Head, ds.Batch)
	hooks.OnScheduleComplete(ctx, ds.Name, out.Cost, out.Duration, err)
	if out.Sequence == nil {
		return nil, err
	}

	res := &Result{
		Head:     ds.Head,
		Schedule: out,
		Metrics: report.Compute(ds.Head, ds.Batch, out.Sequence, s.Oracle, report.Options{
			ReadCostPerLPos:   opts.ReadCostPerLPos,
			AlgorithmDuration: out.Duration,
		}),
		Steps: report.Steps(ds.Head, ds.Batch, out.Sequence, s.Oracle),
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			opts.Logger.Warn("search interrupted; returning best schedule so far",
				"cost", out.Cost,
				"initial", out.InitialCost)
		}
		return res, err
	}

	opts.Logger.Info("scheduled requests",
		"requests", ds.Batch.Len(),
		"refiner", out.Refiner,
		"cost", out.Cost,
		"initial", out.InitialCost,
		"duration", out.Duration)
	return res, nil
}

// refiner returns opts.Refiner or builds the configured one. Progress is
// forwarded to the caller's callback and to the scheduler hooks.
func (r *Runner) refiner(ctx context.Context, opts Options) (schedule.Refiner, error) {
	if opts.Refiner != nil {
		return opts.Refiner, nil
	}
	cfg := opts.RefinerConfig()
	algorithm := opts.Algorithm
	cfg.Progress = func(p schedule.Progress) {
		if !p.Done {
			observability.Scheduler().OnRefineImproved(ctx, algorithm, p.Iteration, p.BestCost)
		}
		if opts.Progress != nil {
			opts.Progress(p)
		}
	}
	return schedule.NewRefiner(cfg)
}

// lookup returns a cached result for key, if the options allow it.
func (r *Runner) lookup(ctx context.Context, key string, opts Options) (*Result, bool) {
	if !opts.Cacheable() || opts.Refresh {
		return nil, false
	}
	hooks := observability.Cache()
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			hooks.OnCacheHit(ctx, cacheKeyType)
			res.CacheHit = true
			opts.Logger.Info("loaded cached schedule",
				"requests", res.Metrics.Requests,
				"cost", res.Schedule.Cost)
			return &res, true
		}
		// If deserialization fails, fall through to recompute
	} else if err != nil {
		opts.Logger.Debug("cache lookup failed", "err", err)
	}
	hooks.OnCacheMiss(ctx, cacheKeyType)
	return nil, false
}

// store caches res under key, if the options allow it.
func (r *Runner) store(ctx context.Context, key string, res *Result, opts Options) {
	if !opts.Cacheable() {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
		opts.Logger.Debug("cache store failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
