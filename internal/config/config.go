// Package config holds the tuning constants and the runtime selection
// context for the evaluation engine.
//
// Every threshold used by strategy selection lives here, with a documented
// default. Nothing in this package performs computation; it only answers
// questions the selectors ask.
package config

import (
	"fmt"

	"github.com/pbnjay/memory"
	"go.uber.org/multierr"
)

// Cache sizes used to derive the streaming-store threshold (in bytes).
const (
	L1CacheSize = 32 * 1024
	L2CacheSize = 256 * 1024
	L3CacheSize = 8 * 1024 * 1024
)

// UnrollFactor is the unroll depth of the main assignment loops.
const UnrollFactor = 4

// Vector widths in elements, per element size. These model the lanes of a
// 256-bit vector unit; the vectorized functors process batches of this
// width with a scalar tail.
const (
	VectorWidth4 = 8 // float32, int32
	VectorWidth8 = 4 // float64, int64
)

// Selection thresholds, in elements unless noted.
const (
	// ParallelThreshold is the minimum element count before an
	// assignment is split across workers.
	ParallelThreshold = 128 * 1024

	// DeviceMinElems is the minimum element count before the device
	// path amortizes transfer and launch overhead.
	DeviceMinElems = 64 * 1024

	// GemmSmallMax bounds m*n below which a matrix multiply bypasses
	// the library and device paths; call overhead dominates there.
	GemmSmallMax = 64 * 64

	// GemmDeviceMin bounds m*n above which a matrix multiply prefers
	// the device backend when one is active.
	GemmDeviceMin = 256 * 256

	// StreamingBytes is the working-set size above which the vectorized
	// assign prefers the streaming store path, provided source and
	// destination do not alias. A third of the last-level cache: two
	// operands plus the destination.
	StreamingBytes = L3CacheSize / 3
)

// TempCeilingFraction caps a single statement's temporary allocations to a
// fraction of physical memory. Exceeding it is fatal to the statement.
const TempCeilingFraction = 4

// TempCeilingBytes returns the per-statement temporary allocation ceiling.
func TempCeilingBytes() uint64 {
	return memory.TotalMemory() / TempCeilingFraction
}

// Config is the runtime-tunable subset of the selection surface.
// The zero value is not valid; use Default.
type Config struct {
	// BlasEnabled reports whether the external BLAS backend may be
	// selected.
	BlasEnabled bool

	// VectorizeEnabled reports whether vectorized strategies may be
	// selected.
	VectorizeEnabled bool

	// ParallelThreshold overrides the package constant when > 0.
	ParallelThreshold int

	// NumWorkers bounds the fork-join split width. 0 means NumCPU.
	NumWorkers int
}

// Default returns the default runtime configuration.
func Default() Config {
	return Config{
		BlasEnabled:       true,
		VectorizeEnabled:  true,
		ParallelThreshold: ParallelThreshold,
		NumWorkers:        0,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.ParallelThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("parallel threshold must be >= 0, got %d", c.ParallelThreshold))
	}
	if c.NumWorkers < 0 {
		err = multierr.Append(err, fmt.Errorf("workers must be >= 0, got %d", c.NumWorkers))
	}
	return err
}
