// Package tape models the physical side of a tape drive scheduling problem:
// head positions, I/O requests and request batches.
//
// A position on tape is a (wrap, lpos) pair. The wrap is the coarse track
// index; moving between wraps is expensive. The lpos is the linear offset
// along the tape. A request is serviced by seeking to its start position and
// then reading along the wrap up to its end position.
//
// Types in this package are plain values. A Batch is treated as immutable
// once it has been handed to a scheduler.
package tape

import (
	"fmt"

	errs "github.com/matzehuels/tapesched/pkg/errors"
)

// DefaultMaxBatchSize is the largest batch accepted unless a caller
// configures a different bound.
const DefaultMaxBatchSize = 10000

// HeadStatus is the mode of the read/write head.
type HeadStatus uint32

const (
	// HeadStatic is a parked head that is not reading or writing.
	HeadStatic HeadStatus = iota
	// HeadRW is a head that is actively reading or writing.
	HeadRW
)

// Valid reports whether s is one of the known statuses.
func (s HeadStatus) Valid() bool {
	return s == HeadStatic || s == HeadRW
}

func (s HeadStatus) String() string {
	switch s {
	case HeadStatic:
		return "static"
	case HeadRW:
		return "rw"
	default:
		return fmt.Sprintf("HeadStatus(%d)", uint32(s))
	}
}

// HeadPosition is the physical location of the head.
type HeadPosition struct {
	Wrap   uint32     `json:"wrap" toml:"wrap"`
	LPos   uint32     `json:"lpos" toml:"lpos"`
	Status HeadStatus `json:"status" toml:"status"`
}

func (h HeadPosition) String() string {
	return fmt.Sprintf("(wrap=%d lpos=%d %s)", h.Wrap, h.LPos, h.Status)
}

// Request is a single I/O unit. The head seeks to (Wrap, StartLPos) and
// leaves the request at (Wrap, EndLPos).
type Request struct {
	ID        uint32 `json:"id" toml:"id"`
	Wrap      uint32 `json:"wrap" toml:"wrap"`
	StartLPos uint32 `json:"start_lpos" toml:"start_lpos"`
	EndLPos   uint32 `json:"end_lpos" toml:"end_lpos"`
}

// Start returns the position the head must seek to before servicing r.
func (r Request) Start() HeadPosition {
	return HeadPosition{Wrap: r.Wrap, LPos: r.StartLPos, Status: HeadRW}
}

// End returns the position of the head once r has been serviced.
func (r Request) End() HeadPosition {
	return HeadPosition{Wrap: r.Wrap, LPos: r.EndLPos, Status: HeadRW}
}

// Span returns the number of linear positions read while servicing r.
func (r Request) Span() uint32 {
	return absDiff(r.StartLPos, r.EndLPos)
}

// Batch is the full request set of one scheduling run. Count is the
// declared size as read from the input; it must equal len(Requests).
type Batch struct {
	Count    int       `json:"count" toml:"count"`
	Requests []Request `json:"requests" toml:"requests"`
}

// NewBatch returns a batch whose declared count matches reqs.
func NewBatch(reqs ...Request) Batch {
	return Batch{Count: len(reqs), Requests: reqs}
}

// Len returns the number of supplied requests.
func (b Batch) Len() int { return len(b.Requests) }

// Validate checks the shape invariants of b: the declared count matches the
// supplied requests, the size is within maxSize, and request IDs are unique.
// A non-positive maxSize means DefaultMaxBatchSize.
func (b Batch) Validate(maxSize int) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxBatchSize
	}
	if b.Count < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "negative request count %d", b.Count)
	}
	if b.Count != len(b.Requests) {
		return errs.New(errs.ErrCodeInvalidInput, "declared request count %d does not match %d supplied requests", b.Count, len(b.Requests))
	}
	if b.Count > maxSize {
		return errs.New(errs.ErrCodeInvalidInput, "request count %d exceeds maximum batch size %d", b.Count, maxSize)
	}

	seen := make(map[uint32]int, len(b.Requests))
	for i, r := range b.Requests {
		if j, ok := seen[r.ID]; ok {
			return errs.New(errs.ErrCodeInvalidInput, "duplicate request id %d at positions %d and %d", r.ID, j, i)
		}
		seen[r.ID] = i
	}
	return nil
}

// IDs maps a sequence of request indices to request identifiers.
// Indices outside the batch are skipped.
func (b Batch) IDs(seq []int) []uint32 {
	ids := make([]uint32, 0, len(seq))
	for _, idx := range seq {
		if idx < 0 || idx >= len(b.Requests) {
			continue
		}
		ids = append(ids, b.Requests[idx].ID)
	}
	return ids
}

// Clone returns a deep copy of b.
func (b Batch) Clone() Batch {
	reqs := make([]Request, len(b.Requests))
	copy(reqs, b.Requests)
	return Batch{Count: b.Count, Requests: reqs}
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
