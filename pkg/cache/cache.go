// Package cache stores finished scheduling results so that repeated runs
// over the same dataset and options can skip the search.
//
// Only final results are cached. Refiner state between iterations is never
// persisted. A result is reusable only when the run that produced it was
// deterministic, which the pipeline decides before consulting the cache.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under the user cache directory.
//   - [RedisCache]: a shared Redis instance, selected with a redis:// URL.
//   - [NullCache]: stores nothing; used when caching is disabled.
//
// # Keys
//
// Keys are built by a [Keyer] from the dataset content hash and the options
// that influence the result. [ScopedKeyer] prefixes keys so that several
// tenants can share one backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. A miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// TTLResult is how long a scheduling result stays cached.
const TTLResult = 7 * 24 * time.Hour

// ResultKeyOpts are the options that change the outcome of a run.
type ResultKeyOpts struct {
	Algorithm    string  `json:"algorithm"`
	Iterations   int     `json:"iterations"`
	Seed         uint64  `json:"seed"`
	TabuSize     int     `json:"tabu_size"`
	Temperature  float64 `json:"temperature"`
	CoolingRate  float64 `json:"cooling_rate"`
	WrapCost     uint32  `json:"wrap_cost"`
	LPosCost     uint32  `json:"lpos_cost"`
	ReadCost     uint32  `json:"read_cost"`
	MaxBatchSize int     `json:"max_batch_size"`
}

// Keyer builds cache keys.
type Keyer interface {
	ResultKey(datasetHash string, opts ResultKeyOpts) string
}

// DefaultKeyer hashes the dataset hash together with all options.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey returns "result:<sha256>" over datasetHash and opts.
func (DefaultKeyer) ResultKey(datasetHash string, opts ResultKeyOpts) string {
	return hashKey("result", datasetHash, opts)
}
