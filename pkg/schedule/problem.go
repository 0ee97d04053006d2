package schedule

import (
	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/tape"
)

// Schedule is a visit order: a permutation of indices into Batch.Requests.
type Schedule []int

// Clone returns a copy of s that shares no storage with it.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

// Problem bundles the immutable inputs of one scheduling run.
type Problem struct {
	Head   tape.HeadPosition
	Batch  tape.Batch
	Oracle tape.SeekOracle
}

// Validate checks that p can be scheduled: the oracle is set, the head status
// is known and the batch satisfies its shape invariants.
func (p Problem) Validate(maxBatch int) error {
	if p.Oracle == nil {
		return errs.New(errs.ErrCodeInvalidInput, "seek oracle is nil")
	}
	if !p.Head.Status.Valid() {
		return errs.New(errs.ErrCodeInvalidInput, "unknown head status %d", uint32(p.Head.Status))
	}
	return p.Batch.Validate(maxBatch)
}

// Evaluate returns the total seek cost of visiting the requests of p in the
// order given by s, starting from p.Head. Only positioning is charged; the
// read along a request is free. Indices outside the batch are ignored.
//
// Evaluate does not modify its arguments and is safe for concurrent use.
func Evaluate(p Problem, s Schedule) float64 {
	head := p.Head
	var total uint64
	for _, idx := range s {
		if idx < 0 || idx >= len(p.Batch.Requests) {
			continue
		}
		r := p.Batch.Requests[idx]
		total += uint64(p.Oracle.SeekCost(head, r.Start()))
		head = r.End()
	}
	return float64(total)
}

// ValidatePermutation reports whether s visits every index in [0, n) exactly
// once.
func ValidatePermutation(s Schedule, n int) error {
	if len(s) != n {
		return errs.New(errs.ErrCodeInvalidInput, "schedule has %d entries, batch has %d requests", len(s), n)
	}
	seen := make([]bool, n)
	for pos, idx := range s {
		if idx < 0 || idx >= n {
			return errs.New(errs.ErrCodeInvalidInput, "schedule entry %d at position %d is out of range", idx, pos)
		}
		if seen[idx] {
			return errs.New(errs.ErrCodeInvalidInput, "schedule visits request %d twice", idx)
		}
		seen[idx] = true
	}
	return nil
}
