package tape

import (
	"math"
	"testing"

	errs "github.com/matzehuels/tapesched/pkg/errors"
)

func TestRequestPositions(t *testing.T) {
	r := Request{ID: 7, Wrap: 3, StartLPos: 500, EndLPos: 120}

	if got := r.Start(); got != (HeadPosition{Wrap: 3, LPos: 500, Status: HeadRW}) {
		t.Errorf("Start() = %v", got)
	}
	if got := r.End(); got != (HeadPosition{Wrap: 3, LPos: 120, Status: HeadRW}) {
		t.Errorf("End() = %v", got)
	}
	if got := r.Span(); got != 380 {
		t.Errorf("Span() = %d, want 380", got)
	}
}

func TestHeadStatus(t *testing.T) {
	tests := []struct {
		status HeadStatus
		valid  bool
		str    string
	}{
		{HeadStatic, true, "static"},
		{HeadRW, true, "rw"},
		{HeadStatus(9), false, "HeadStatus(9)"},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("%v.Valid() = %v, want %v", tt.status, got, tt.valid)
		}
		if got := tt.status.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
	}
}

func TestBatchValidate(t *testing.T) {
	three := []Request{{ID: 1}, {ID: 2}, {ID: 3}}

	tests := []struct {
		name    string
		batch   Batch
		max     int
		wantErr bool
	}{
		{"matching count", NewBatch(three...), 0, false},
		{"empty", NewBatch(), 0, false},
		{"count mismatch", Batch{Count: 5, Requests: three}, 0, true},
		{"negative count", Batch{Count: -1}, 0, true},
		{"over bound", NewBatch(three...), 2, true},
		{"duplicate id", NewBatch(Request{ID: 1}, Request{ID: 1}), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate(tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("Validate() code = %v, want INVALID_INPUT", errs.GetCode(err))
			}
		})
	}
}

func TestBatchIDs(t *testing.T) {
	b := NewBatch(Request{ID: 10}, Request{ID: 20}, Request{ID: 30})

	got := b.IDs([]int{2, 0, 1, 7})
	want := []uint32{30, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", got, want)
		}
	}
}

func TestBatchClone(t *testing.T) {
	b := NewBatch(Request{ID: 1, Wrap: 2})
	c := b.Clone()
	c.Requests[0].Wrap = 9

	if b.Requests[0].Wrap != 2 {
		t.Error("Clone() shares request storage with the original")
	}
}

func TestLinearSeek(t *testing.T) {
	s := DefaultSeek()

	tests := []struct {
		name     string
		from, to HeadPosition
		want     uint32
	}{
		{"same position", HeadPosition{Wrap: 1, LPos: 10}, HeadPosition{Wrap: 1, LPos: 10}, 0},
		{"forward lpos", HeadPosition{LPos: 0}, HeadPosition{LPos: 100}, 100},
		{"backward lpos", HeadPosition{LPos: 100}, HeadPosition{LPos: 40}, 60},
		{"wrap change", HeadPosition{Wrap: 0, LPos: 5}, HeadPosition{Wrap: 2, LPos: 5}, 2000},
		{"both", HeadPosition{Wrap: 3, LPos: 0}, HeadPosition{Wrap: 1, LPos: 7}, 2007},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SeekCost(tt.from, tt.to); got != tt.want {
				t.Errorf("SeekCost() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLinearSeekSaturates(t *testing.T) {
	s := LinearSeek{WrapCost: math.MaxUint32, LPosCost: 1}
	got := s.SeekCost(HeadPosition{Wrap: 0}, HeadPosition{Wrap: 5})
	if got != math.MaxUint32 {
		t.Errorf("SeekCost() = %d, want saturation at MaxUint32", got)
	}
}

func TestSeekFunc(t *testing.T) {
	var calls int
	f := SeekFunc(func(from, to HeadPosition) uint32 {
		calls++
		return 42
	})
	if got := f.SeekCost(HeadPosition{}, HeadPosition{}); got != 42 || calls != 1 {
		t.Errorf("SeekFunc.SeekCost() = %d after %d calls", got, calls)
	}
}
