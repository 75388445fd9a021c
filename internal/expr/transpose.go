package expr

import (
	"github.com/vecto-ml/vecto/internal/tensor"
)

// Transposed reads a 2-D operand in the opposite storage order without
// moving data. The evaluator inserts it when an assignment's source and
// destination orders differ, so strategies downstream never see an order
// mismatch.
type Transposed[T tensor.Element] struct {
	child      Node[T]
	rows, cols int
}

// NewTransposed wraps a 2-D node.
func NewTransposed[T tensor.Element](child Node[T]) *Transposed[T] {
	shape := child.Shape()
	if len(shape) != 2 {
		panic("expr: transpose adaptor requires a 2-D operand")
	}
	return &Transposed[T]{child: child, rows: shape[0], cols: shape[1]}
}

func (t *Transposed[T]) Children() []AnyNode { return []AnyNode{t.child} }
func (t *Transposed[T]) Shape() tensor.Shape { return t.child.Shape() }
func (t *Transposed[T]) Size() int           { return t.child.Size() }

// Order reports the opposite of the child's order: the adaptor produces the
// child's elements in the other iteration order.
func (t *Transposed[T]) Order() tensor.Order {
	if t.child.Order() == tensor.RowMajor {
		return tensor.ColMajor
	}
	return tensor.RowMajor
}

// Get maps flat index i in the adaptor's order to the child's order.
func (t *Transposed[T]) Get(i int) T {
	// i enumerates in this node's order; translate (r, c) into the
	// child's flat order.
	var r, c int
	if t.Order() == tensor.RowMajor {
		r, c = i/t.cols, i%t.cols
	} else {
		r, c = i%t.rows, i/t.rows
	}
	if t.child.Order() == tensor.RowMajor {
		return t.child.Get(r*t.cols + c)
	}
	return t.child.Get(c*t.rows + r)
}

func (t *Transposed[T]) Traits() Traits {
	tr := t.child.Traits()
	// Order remapping defeats contiguous reads.
	tr.Direct = false
	tr.Vectorizable = false
	tr.GPUComputable = false
	return tr
}

func (t *Transposed[T]) Aliases(lo, hi uintptr) bool { return t.child.Aliases(lo, hi) }
