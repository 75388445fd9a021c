package config

import "fmt"

// AssignStrategy identifies one execution path for an elementwise
// assignment statement.
type AssignStrategy int

// Assignment strategies, from most general to most specialized.
const (
	AssignAuto AssignStrategy = iota // no forcing
	AssignStandard
	AssignDirect
	AssignFastCopy
	AssignVectorized
	AssignDevice
)

// String returns a human-readable strategy name.
func (s AssignStrategy) String() string {
	switch s {
	case AssignAuto:
		return "auto"
	case AssignStandard:
		return "standard"
	case AssignDirect:
		return "direct"
	case AssignFastCopy:
		return "fastcopy"
	case AssignVectorized:
		return "vectorized"
	case AssignDevice:
		return "device"
	default:
		return "unknown"
	}
}

// GemmStrategy identifies one matrix-multiply backend.
type GemmStrategy int

// Matrix multiply strategies.
const (
	GemmAuto GemmStrategy = iota
	GemmStd
	GemmVec
	GemmBlas
	GemmDevice
)

// String returns a human-readable strategy name.
func (s GemmStrategy) String() string {
	switch s {
	case GemmAuto:
		return "auto"
	case GemmStd:
		return "std"
	case GemmVec:
		return "vec"
	case GemmBlas:
		return "blas"
	case GemmDevice:
		return "device"
	default:
		return "unknown"
	}
}

// ConvStrategy identifies one convolution backend.
type ConvStrategy int

// Convolution strategies.
const (
	ConvAuto ConvStrategy = iota
	ConvStd
	ConvVec
	ConvBlas
)

// String returns a human-readable strategy name.
func (s ConvStrategy) String() string {
	switch s {
	case ConvAuto:
		return "auto"
	case ConvStd:
		return "std"
	case ConvVec:
		return "vec"
	case ConvBlas:
		return "blas"
	default:
		return "unknown"
	}
}

// Context records user-forced implementation choices for a computation
// region. Selectors consult it read-only; callers install a forced choice
// with the Force functions and must call the returned restore function
// when the region ends (defer it).
//
// A Context must not be mutated concurrently from two goroutines; threads
// evaluating statements concurrently need distinct contexts.
type Context struct {
	Cfg Config

	assign       AssignStrategy
	assignForced bool

	gemm       GemmStrategy
	gemmForced bool

	conv       ConvStrategy
	convForced bool
}

// NewContext returns an unforced context with the given configuration.
// An invalid configuration is programmer error and panics.
func NewContext(cfg Config) *Context {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: invalid configuration: %v", err))
	}
	return &Context{Cfg: cfg}
}

var defaultContext = NewContext(Default())

// DefaultContext returns the shared process-wide context. Callers that
// evaluate statements concurrently should allocate their own contexts
// instead.
func DefaultContext() *Context {
	return defaultContext
}

// ForceAssign installs a forced assignment strategy. The returned function
// restores the previous state and must be called when the region ends.
func (c *Context) ForceAssign(s AssignStrategy) func() {
	prev, prevForced := c.assign, c.assignForced
	c.assign, c.assignForced = s, s != AssignAuto
	return func() { c.assign, c.assignForced = prev, prevForced }
}

// ForceGemm installs a forced matrix-multiply strategy, scoped like
// ForceAssign.
func (c *Context) ForceGemm(s GemmStrategy) func() {
	prev, prevForced := c.gemm, c.gemmForced
	c.gemm, c.gemmForced = s, s != GemmAuto
	return func() { c.gemm, c.gemmForced = prev, prevForced }
}

// ForceConv installs a forced convolution strategy, scoped like
// ForceAssign.
func (c *Context) ForceConv(s ConvStrategy) func() {
	prev, prevForced := c.conv, c.convForced
	c.conv, c.convForced = s, s != ConvAuto
	return func() { c.conv, c.convForced = prev, prevForced }
}

// ForcedAssign reports the forced assignment strategy, if any.
func (c *Context) ForcedAssign() (AssignStrategy, bool) {
	return c.assign, c.assignForced
}

// ForcedGemm reports the forced matrix-multiply strategy, if any.
func (c *Context) ForcedGemm() (GemmStrategy, bool) {
	return c.gemm, c.gemmForced
}

// ForcedConv reports the forced convolution strategy, if any.
func (c *Context) ForcedConv() (ConvStrategy, bool) {
	return c.conv, c.convForced
}
