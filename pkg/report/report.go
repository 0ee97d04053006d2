// Package report derives drive-level metrics from a finished schedule.
//
// The scheduler only minimises seek cost. The metrics here describe what a
// schedule does to the drive as a whole: how long the head spends
// positioning and reading, how far the tape belt travels and how often the
// motor reverses.
package report

import (
	"time"

	"github.com/matzehuels/tapesched/pkg/tape"
)

// DefaultReadCostPerLPos is the read cost of one linear position.
const DefaultReadCostPerLPos = 1

// Options tunes Compute.
type Options struct {
	// ReadCostPerLPos prices reading one linear position. Zero selects
	// DefaultReadCostPerLPos.
	ReadCostPerLPos uint32 `json:"read_cost_per_lpos"`
	// AlgorithmDuration is the wall-clock time the scheduler took. It is
	// copied into the metrics unchanged.
	AlgorithmDuration time.Duration `json:"-"`
}

// Metrics summarises a schedule. Durations are in seek-oracle cost units.
type Metrics struct {
	Requests           int           `json:"requests"`
	AlgorithmDuration  time.Duration `json:"algorithm_duration"`
	AddressingDuration uint64        `json:"addressing_duration"`
	ReadDuration       uint64        `json:"read_duration"`
	BeltWear           uint64        `json:"belt_wear"`
	MotorWear          int           `json:"motor_wear"`
}

// TotalDuration returns addressing plus read time.
func (m Metrics) TotalDuration() uint64 {
	return m.AddressingDuration + m.ReadDuration
}

// Step is one request visit: the seek to its start and the read to its end.
type Step struct {
	Position int               `json:"position"`
	Index    int               `json:"index"`
	ID       uint32            `json:"id"`
	From     tape.HeadPosition `json:"from"`
	Start    tape.HeadPosition `json:"start"`
	End      tape.HeadPosition `json:"end"`
	Seek     uint32            `json:"seek"`
	Read     uint32            `json:"read"`
}

// Steps expands seq into per-request steps starting at head. Indices outside
// the batch are skipped.
func Steps(head tape.HeadPosition, batch tape.Batch, seq []int, oracle tape.SeekOracle) []Step {
	steps := make([]Step, 0, len(seq))
	cur := head
	for _, idx := range seq {
		if idx < 0 || idx >= len(batch.Requests) {
			continue
		}
		r := batch.Requests[idx]
		steps = append(steps, Step{
			Position: len(steps),
			Index:    idx,
			ID:       r.ID,
			From:     cur,
			Start:    r.Start(),
			End:      r.End(),
			Seek:     oracle.SeekCost(cur, r.Start()),
			Read:     r.Span(),
		})
		cur = r.End()
	}
	return steps
}

// Compute derives the drive metrics of visiting batch in the order seq.
func Compute(head tape.HeadPosition, batch tape.Batch, seq []int, oracle tape.SeekOracle, opts Options) Metrics {
	readCost := uint64(opts.ReadCostPerLPos)
	if readCost == 0 {
		readCost = DefaultReadCostPerLPos
	}

	m := Metrics{AlgorithmDuration: opts.AlgorithmDuration}
	var dir int
	turn := func(from, to uint32) {
		d := direction(from, to)
		if d == 0 {
			return
		}
		if dir != 0 && d != dir {
			m.MotorWear++
		}
		dir = d
	}

	for _, s := range Steps(head, batch, seq, oracle) {
		m.Requests++
		m.AddressingDuration += uint64(s.Seek)
		m.ReadDuration += uint64(s.Read) * readCost
		m.BeltWear += uint64(distance(s.From.LPos, s.Start.LPos)) + uint64(s.Read)
		turn(s.From.LPos, s.Start.LPos)
		turn(s.Start.LPos, s.End.LPos)
	}
	return m
}

func direction(from, to uint32) int {
	switch {
	case to > from:
		return 1
	case to < from:
		return -1
	default:
		return 0
	}
}

func distance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
