package expr

import (
	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// Ref is a read-only reference to a container. It never extends the
// container's lifetime and never copies it.
type Ref[T tensor.Element] struct {
	d *tensor.Dense[T]
}

// NewRef wraps a container as an expression leaf.
func NewRef[T tensor.Element](d *tensor.Dense[T]) *Ref[T] {
	return &Ref[T]{d: d}
}

func (r *Ref[T]) Children() []AnyNode     { return nil }
func (r *Ref[T]) Shape() tensor.Shape     { return r.d.Shape() }
func (r *Ref[T]) Size() int               { return r.d.Size() }
func (r *Ref[T]) Order() tensor.Order     { return r.d.Order() }
func (r *Ref[T]) Get(i int) T             { return r.d.Get(i) }
func (r *Ref[T]) Slice() []T              { return r.d.Data() }
func (r *Ref[T]) Container() *tensor.Dense[T] { return r.d }

func (r *Ref[T]) Traits() Traits {
	return Traits{
		Direct:        true,
		Vectorizable:  true,
		ThreadSafe:    true,
		Homogeneous:   true,
		GPUComputable: tensor.DTypeOf[T]() == tensor.Float32 && device.Active() != nil,
	}
}

func (r *Ref[T]) Aliases(lo, hi uintptr) bool { return r.d.Overlaps(lo, hi) }

// EnsureHost restores the host copy when only the device copy is valid.
func (r *Ref[T]) EnsureHost() {
	if !r.d.CPUValid() {
		r.d.EnsureCPU(device.Active())
	}
}

// ViewRef is a read-only reference to a rectangular view. Direct only when
// the view is contiguous in the base container's memory.
type ViewRef[T tensor.Element] struct {
	v *tensor.SubMatrix[T]
}

// NewViewRef wraps a view as an expression leaf.
func NewViewRef[T tensor.Element](v *tensor.SubMatrix[T]) *ViewRef[T] {
	return &ViewRef[T]{v: v}
}

func (r *ViewRef[T]) Children() []AnyNode { return nil }
func (r *ViewRef[T]) Shape() tensor.Shape { return r.v.Shape() }
func (r *ViewRef[T]) Size() int           { return r.v.Size() }
func (r *ViewRef[T]) Order() tensor.Order { return r.v.Order() }
func (r *ViewRef[T]) Get(i int) T         { return r.v.Get(i) }

func (r *ViewRef[T]) Slice() []T {
	s, _ := r.v.Slice()
	return s
}

func (r *ViewRef[T]) Traits() Traits {
	contiguous := r.v.Contiguous()
	return Traits{
		Direct:       contiguous,
		Vectorizable: contiguous,
		ThreadSafe:   true,
		Homogeneous:  true,
	}
}

func (r *ViewRef[T]) Aliases(lo, hi uintptr) bool { return r.v.Container().Overlaps(lo, hi) }

// EnsureHost restores the base container's host copy.
func (r *ViewRef[T]) EnsureHost() {
	if !r.v.Container().CPUValid() {
		r.v.Container().EnsureCPU(device.Active())
	}
}

// Scalar broadcasts one value to any shape. Size reports -1; an enclosing
// binary node takes its shape from the other operand.
type Scalar[T tensor.Element] struct {
	v T
}

// NewScalar wraps a constant as a broadcast leaf.
func NewScalar[T tensor.Element](v T) *Scalar[T] {
	return &Scalar[T]{v: v}
}

func (s *Scalar[T]) Children() []AnyNode { return nil }
func (s *Scalar[T]) Shape() tensor.Shape { return nil }
func (s *Scalar[T]) Size() int           { return -1 }
func (s *Scalar[T]) Order() tensor.Order { return tensor.RowMajor }
func (s *Scalar[T]) Get(int) T           { return s.v }
func (s *Scalar[T]) Value() T            { return s.v }

func (s *Scalar[T]) Traits() Traits {
	return Traits{
		Generator:     true,
		Vectorizable:  true,
		ThreadSafe:    true,
		Homogeneous:   true,
		GPUComputable: tensor.DTypeOf[T]() == tensor.Float32 && device.Active() != nil,
	}
}

func (s *Scalar[T]) Aliases(uintptr, uintptr) bool { return false }

// Generator computes elements purely from the index. ThreadSafe must be
// false for functions with internal mutable state, e.g. sequential RNGs or
// counting probes; such sources are never split across workers.
type Generator[T tensor.Element] struct {
	shape      tensor.Shape
	fn         func(i int) T
	threadSafe bool
}

// NewGenerator builds an index-function leaf over the given shape.
func NewGenerator[T tensor.Element](shape tensor.Shape, threadSafe bool, fn func(i int) T) *Generator[T] {
	if err := shape.Validate(); err != nil {
		panic("expr: " + err.Error())
	}
	return &Generator[T]{shape: shape.Clone(), fn: fn, threadSafe: threadSafe}
}

func (g *Generator[T]) Children() []AnyNode { return nil }
func (g *Generator[T]) Shape() tensor.Shape { return g.shape }
func (g *Generator[T]) Size() int           { return g.shape.NumElements() }
func (g *Generator[T]) Order() tensor.Order { return tensor.RowMajor }
func (g *Generator[T]) Get(i int) T         { return g.fn(i) }

func (g *Generator[T]) Traits() Traits {
	return Traits{
		Generator:   true,
		ThreadSafe:  g.threadSafe,
		Homogeneous: true,
	}
}

func (g *Generator[T]) Aliases(uintptr, uintptr) bool { return false }
