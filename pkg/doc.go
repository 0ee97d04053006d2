// Package pkg provides the libraries behind tapesched, a scheduler for read
// requests on linear tape drives.
//
// # Overview
//
// A batch of requests is ordered so the head travels as little as possible
// between reads. The pkg directory is organized by stage:
//
//  1. [tape] - Head positions, requests, batches and the seek cost model
//  2. [dataset] - Loading batches from JSON, TOML and the text format
//  3. [schedule] - Greedy construction, simulated annealing and tabu search
//  4. [report] - Drive metrics and per-visit steps for a schedule
//  5. [render] - Graphviz drawings of the head path
//  6. [pipeline] - Orchestration (load → schedule → report → render) with caching
//  7. [server] - HTTP API over the pipeline
//
// # Architecture
//
//	Dataset file or API request
//	         ↓
//	    [dataset] package (parse and validate)
//	         ↓
//	    [schedule] package (greedy order, then one refiner)
//	         ↓
//	    [report] package (addressing, read and wear metrics)
//	         ↓
//	    JSON/DOT/SVG output
//
// # Quick Start
//
//	ds, err := dataset.Load("case_1.txt")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Execute(ctx, ds, pipeline.Options{Algorithm: "tabu"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Schedule.IDs)
//
// Supporting packages: [cache] stores results on disk or in Redis,
// [observability] carries scheduler, cache and HTTP hooks, [errors] defines
// coded errors, and [buildinfo] reports the build version.
package pkg
