package tape

// SeekOracle prices the head movement between two positions.
// Implementations must be pure: the same pair always costs the same, and
// calls may happen concurrently.
type SeekOracle interface {
	SeekCost(from, to HeadPosition) uint32
}

// SeekFunc adapts an ordinary function to the SeekOracle interface.
type SeekFunc func(from, to HeadPosition) uint32

// SeekCost calls f(from, to).
func (f SeekFunc) SeekCost(from, to HeadPosition) uint32 { return f(from, to) }

// Default costs of LinearSeek.
const (
	DefaultWrapCost = 1000
	DefaultLPosCost = 1
)

// LinearSeek charges a fixed cost per wrap crossed plus a fixed cost per
// linear position travelled. It ignores the head status.
type LinearSeek struct {
	WrapCost uint32
	LPosCost uint32
}

// DefaultSeek returns the LinearSeek model with the default costs.
func DefaultSeek() LinearSeek {
	return LinearSeek{WrapCost: DefaultWrapCost, LPosCost: DefaultLPosCost}
}

// SeekCost implements SeekOracle. The result saturates at the maximum
// uint32 instead of wrapping around.
func (s LinearSeek) SeekCost(from, to HeadPosition) uint32 {
	cost := uint64(absDiff(from.Wrap, to.Wrap))*uint64(s.WrapCost) +
		uint64(absDiff(from.LPos, to.LPos))*uint64(s.LPosCost)
	if cost > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(cost)
}

var _ SeekOracle = LinearSeek{}
var _ SeekOracle = SeekFunc(nil)
