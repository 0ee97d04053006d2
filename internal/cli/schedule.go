package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tapesched/pkg/dataset"
	"github.com/matzehuels/tapesched/pkg/pipeline"
)

// scheduleOpts holds the command-line flags for the schedule command.
type scheduleOpts struct {
	file        string        // dataset path, alternative to the positional argument
	algorithm   string        // refiner: annealing, tabu or greedy
	iterations  int           // refiner iteration budget
	seed        uint64        // annealing RNG seed
	timeLimit   time.Duration // soft wall-clock limit for the refiner
	tabuSize    int           // tabu table capacity
	temperature float64       // initial annealing temperature
	coolingRate float64       // annealing cooling factor
	wrapCost    uint32        // seek cost of one wrap change
	lposCost    uint32        // seek cost of one linear position
	readCost    uint32        // read cost of one linear position
	refresh     bool          // ignore cached results
	output      string        // JSON result path
	svg         string        // head path SVG
	dot         string        // head path DOT
	detailed    bool          // positions in the drawing
	cache       cacheFlags
}

// scheduleCommand creates the schedule command.
func (c *CLI) scheduleCommand() *cobra.Command {
	var opts scheduleOpts

	cmd := &cobra.Command{
		Use:   "schedule [file]",
		Short: "Order the requests of a dataset and report drive metrics",
		Long: `Schedule reads a dataset of tape read requests, builds a greedy visit order
and refines it. The dataset format follows the file extension: .json, .toml,
or the bracketed text format for anything else.`,
		Example: `  tapesched schedule case_1.txt
  tapesched schedule -f case_1.json --algorithm tabu --iterations 500
  tapesched schedule case_1.txt --time-limit 5s -o result.json --svg path.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.file
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				_ = cmd.Usage()
				return fmt.Errorf("dataset path required: %s schedule <file>", appName)
			}
			return c.runSchedule(cmd, path, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "dataset file")
	f.StringVarP(&opts.algorithm, "algorithm", "a", pipeline.DefaultAlgorithm, "refiner: annealing, tabu, greedy")
	f.IntVarP(&opts.iterations, "iterations", "n", 0, "refiner iterations (0 = refiner default)")
	f.Uint64Var(&opts.seed, "seed", pipeline.DefaultSeed, "random seed for annealing")
	f.DurationVar(&opts.timeLimit, "time-limit", 0, "stop refining after this long (disables caching)")
	f.IntVar(&opts.tabuSize, "tabu-size", 0, "tabu table capacity (0 = default)")
	f.Float64Var(&opts.temperature, "temperature", 0, "initial annealing temperature (0 = default)")
	f.Float64Var(&opts.coolingRate, "cooling-rate", 0, "annealing cooling rate in (0,1) (0 = default)")
	f.Uint32Var(&opts.wrapCost, "wrap-cost", 0, "seek cost of a wrap change (0 = default)")
	f.Uint32Var(&opts.lposCost, "lpos-cost", 0, "seek cost per linear position (0 = default)")
	f.Uint32Var(&opts.readCost, "read-cost", 0, "read cost per linear position (0 = default)")
	f.BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	f.StringVarP(&opts.output, "output", "o", "", "write the result as JSON")
	f.StringVar(&opts.svg, "svg", "", "write the head path as SVG")
	f.StringVar(&opts.dot, "dot", "", "write the head path as Graphviz DOT")
	f.BoolVar(&opts.detailed, "detailed", false, "show positions in the head path drawing")
	opts.cache.register(cmd)

	return cmd
}

// pipelineOptions layers flags that were set explicitly over the config
// file defaults.
func (c *CLI) pipelineOptions(cmd *cobra.Command, opts *scheduleOpts) pipeline.Options {
	po := c.config.Schedule
	po.Formats = nil

	changed := cmd.Flags().Changed
	if changed("algorithm") || po.Algorithm == "" {
		po.Algorithm = opts.algorithm
	}
	if changed("iterations") {
		po.Iterations = opts.iterations
	}
	if changed("seed") || po.Seed == 0 {
		po.Seed = opts.seed
	}
	if changed("time-limit") {
		po.TimeLimit = opts.timeLimit
	}
	if changed("tabu-size") {
		po.TabuSize = opts.tabuSize
	}
	if changed("temperature") {
		po.Temperature = opts.temperature
	}
	if changed("cooling-rate") {
		po.CoolingRate = opts.coolingRate
	}
	if changed("wrap-cost") {
		po.WrapCost = opts.wrapCost
	}
	if changed("lpos-cost") {
		po.LPosCost = opts.lposCost
	}
	if changed("read-cost") {
		po.ReadCostPerLPos = opts.readCost
	}
	if changed("detailed") {
		po.Detailed = opts.detailed
	}
	po.Refresh = opts.refresh
	return po
}

func (c *CLI) runSchedule(cmd *cobra.Command, path string, opts *scheduleOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	load := newStage(logger)
	ds, err := dataset.Load(path)
	if err != nil {
		return err
	}
	load.done(fmt.Sprintf("Loaded %d requests from %s", ds.Batch.Len(), path))

	po := c.pipelineOptions(cmd, opts)
	search := newSearchLogger(logger, po.Algorithm, po.TimeLimit)
	po.Progress = search.onProgress
	po.Logger = logger

	store, err := c.newCache(ctx, opts.cache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(store, nil, logger)
	defer runner.Close()

	res, err := runner.Execute(ctx, ds, po)
	if err != nil {
		if res != nil && errors.Is(err, context.Canceled) {
			printWarning("Interrupted; best schedule so far:")
			writeSequence(os.Stdout, res.Schedule.IDs)
		}
		return err
	}
	if !res.CacheHit {
		search.done(res.Schedule.InitialCost, res.Schedule.Cost)
	}

	writeSequence(os.Stdout, res.Schedule.IDs)
	fmt.Println(metricsTable(res))

	return writeOutputs(ctx, ds, res, po, opts)
}

// writeOutputs renders and writes the files requested by flags.
func writeOutputs(ctx context.Context, ds *dataset.Dataset, res *pipeline.Result, po pipeline.Options, opts *scheduleOpts) error {
	targets := map[string]string{
		pipeline.FormatJSON: opts.output,
		pipeline.FormatSVG:  opts.svg,
		pipeline.FormatDOT:  opts.dot,
	}
	po.Formats = nil
	for _, format := range []string{pipeline.FormatJSON, pipeline.FormatDOT, pipeline.FormatSVG} {
		if targets[format] != "" {
			po.Formats = append(po.Formats, format)
		}
	}
	if len(po.Formats) == 0 {
		return nil
	}

	spinner := newSpinner(ctx, "Rendering outputs...")
	spinner.Start()
	artifacts := make(map[string][]byte, len(po.Formats))
	for _, format := range po.Formats {
		spinner.Update(fmt.Sprintf("Rendering %s...", format))
		one := po
		one.Formats = []string{format}
		out, err := pipeline.Render(ctx, ds, res, one)
		if err != nil {
			spinner.StopWithError(fmt.Sprintf("Rendering %s failed", format))
			return err
		}
		artifacts[format] = out[format]
	}
	spinner.Stop()

	for _, format := range po.Formats {
		path := targets[format]
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	if opts.output != "" {
		printNextStep("Browse the visit order", fmt.Sprintf("%s inspect %s", appName, opts.output))
	}
	return nil
}
