package cli

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tapesched/pkg/schedule"
)

// heartbeat is how often a long search reports that it is still running.
const heartbeat = 10 * time.Second

// searchLogger turns refiner progress into log lines. Improvements are
// logged at debug level. Once every heartbeat, a report also produces an
// info line with the elapsed time. Refiners report only improvements, so
// the info line can lag behind the heartbeat while no better schedule is
// found.
//
// It is not safe for concurrent use. Refiners report from the goroutine
// that runs them.
type searchLogger struct {
	logger    *log.Logger
	algorithm string
	limit     time.Duration
	every     time.Duration

	start, lastLog time.Time
	lastBest       float64
	reports        int
	final          schedule.Progress
}

func newSearchLogger(logger *log.Logger, algorithm string, limit time.Duration) *searchLogger {
	now := time.Now()
	return &searchLogger{
		logger:    logger,
		algorithm: algorithm,
		limit:     limit,
		every:     heartbeat,
		start:     now,
		lastLog:   now,
	}
}

// onProgress implements schedule.ProgressFunc.
func (s *searchLogger) onProgress(p schedule.Progress) {
	if p.Done {
		s.final = p
		return
	}
	defer func() {
		s.reports++
		s.lastBest = p.BestCost
	}()

	switch {
	case s.reports == 0:
		s.logger.Debugf("%s: first improvement at iteration %d, cost %.0f", s.algorithm, p.Iteration, p.BestCost)
	case p.BestCost < s.lastBest:
		s.logger.Debugf("%s: improved to %.0f (↓%.0f) at iteration %d", s.algorithm, p.BestCost, s.lastBest-p.BestCost, p.Iteration)
	}
	if time.Since(s.lastLog) >= s.every {
		s.logger.Infof("Searching... %s elapsed, best cost %.0f", time.Since(s.start).Truncate(time.Second), p.BestCost)
		s.lastLog = time.Now()
	}
}

// done logs the final state of the search.
func (s *searchLogger) done(initial, cost float64) {
	if s.final.Done {
		s.logger.Debugf("%s: stopped after %d iterations", s.algorithm, s.final.Iteration)
	}
	if cost < initial {
		s.logger.Infof("Refined: cost %.0f → %.0f (%d improvements)", initial, cost, s.reports)
		return
	}
	s.logger.Infof("Greedy schedule kept: cost %.0f", cost)
	if s.limit > 0 && s.final.Done && s.reports == 0 {
		s.logger.Warn("No improvement within the time limit; try a longer --time-limit")
	}
}
