package expr

import (
	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// Shared marks a subtree that is referenced from several places in one
// statement. The materializer evaluates it into an owned buffer exactly
// once; afterwards every reference reads the buffer instead of recomputing
// the subtree.
type Shared[T tensor.Element] struct {
	child  Node[T]
	result *tensor.Dense[T]
}

// NewShared wraps a sized subtree. Panics on a scalar operand, which has
// nothing to cache.
func NewShared[T tensor.Element](child Node[T]) *Shared[T] {
	if child.Size() < 0 {
		panic("expr: shared requires a sized operand")
	}
	return &Shared[T]{child: child}
}

func (s *Shared[T]) Children() []AnyNode { return []AnyNode{s.child} }
func (s *Shared[T]) Shape() tensor.Shape { return s.child.Shape() }
func (s *Shared[T]) Size() int           { return s.child.Size() }
func (s *Shared[T]) Order() tensor.Order { return s.child.Order() }

func (s *Shared[T]) Get(i int) T { return s.result.Get(i) }

// Slice returns the materialized buffer.
func (s *Shared[T]) Slice() []T { return s.result.Data() }

// Result returns the owned buffer holding the cached subtree value.
func (s *Shared[T]) Result() *tensor.Dense[T] { return s.result }

func (s *Shared[T]) Traits() Traits {
	return Traits{
		Direct:        true,
		Vectorizable:  true,
		ThreadSafe:    true,
		Homogeneous:   s.child.Traits().Homogeneous,
		GPUComputable: tensor.DTypeOf[T]() == tensor.Float32 && device.Active() != nil,
		NeedsTemp:     true,
	}
}

func (s *Shared[T]) Aliases(lo, hi uintptr) bool {
	// Once materialized the node reads only its own buffer.
	if s.result != nil {
		return s.result.Overlaps(lo, hi)
	}
	return s.child.Aliases(lo, hi)
}

// Materialize evaluates the subtree once. The materializer has already
// visited the children, so any nested temporaries hold their buffers.
func (s *Shared[T]) Materialize(ctx *config.Context) {
	if s.result != nil {
		return
	}
	tmp := allocTemp[T](s.child.Shape().Clone(), s.child.Order())
	fillTemp(tmp.Data(), s.child, ctx)
	s.result = tmp
}
