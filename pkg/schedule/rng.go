package schedule

import "math/rand/v2"

// DefaultSeed is used when a caller passes seed 0.
const DefaultSeed uint64 = 1

// NewRand returns a deterministic PCG generator for seed. Seed 0 selects
// DefaultSeed. The generator is not safe for concurrent use.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}
