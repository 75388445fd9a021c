// Package expr implements the lazy expression graph the evaluator consumes.
// Nodes are transient: built for one statement, walked by the materializer,
// read by an assignment strategy, then discarded.
package expr

import (
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// Traits are the static capability facts selection runs on. Pure metadata;
// composites combine their children's traits.
type Traits struct {
	// Direct means the node's elements live in one contiguous block of
	// host memory reachable through Slice().
	Direct bool
	// Generator means the node is computed purely from the index, with no
	// backing memory.
	Generator bool
	// Vectorizable means a width-batched kernel may read this node.
	Vectorizable bool
	// ThreadSafe means concurrent Get calls are safe, so an assignment
	// may split the index range across workers.
	ThreadSafe bool
	// Homogeneous means no element-type conversion happens anywhere in
	// the subtree. BLAS and device paths require it.
	Homogeneous bool
	// GPUComputable means the subtree can be realized with device kernels.
	GPUComputable bool
	// NeedsTemp means the node must be materialized into an owned buffer
	// before strategies that want direct memory can run.
	NeedsTemp bool
}

// and combines the traits of two operands of an elementwise composite.
func (t Traits) and(o Traits) Traits {
	return Traits{
		Direct:        false,
		Generator:     t.Generator && o.Generator,
		Vectorizable:  t.Vectorizable && o.Vectorizable,
		ThreadSafe:    t.ThreadSafe && o.ThreadSafe,
		Homogeneous:   t.Homogeneous && o.Homogeneous,
		GPUComputable: t.GPUComputable && o.GPUComputable,
		NeedsTemp:     t.NeedsTemp || o.NeedsTemp,
	}
}

// AnyNode is the type-erased view the materializer traverses. Concrete
// nodes are generic; the walk is not.
type AnyNode interface {
	Children() []AnyNode
}

// Node is an expression of element type T.
type Node[T tensor.Element] interface {
	AnyNode

	// Shape returns the node's logical dimensions. Scalar broadcast nodes
	// return nil.
	Shape() tensor.Shape
	// Size returns the element count, or -1 for scalar broadcast nodes.
	Size() int
	// Order returns the storage order elements are produced in.
	Order() tensor.Order
	// Get returns the element at flat index i in storage order.
	Get(i int) T
	// Traits returns the node's capability facts.
	Traits() Traits
	// Aliases reports whether the node reads memory overlapping [lo, hi).
	Aliases(lo, hi uintptr) bool
}

// Direct is a node whose elements are readable as one contiguous slice.
// Only nodes whose Traits().Direct is true implement it meaningfully.
type Direct[T tensor.Element] interface {
	Node[T]
	Slice() []T
}

// materializable is implemented by nodes that compute into an owned buffer
// when visited. Materialize must be idempotent.
type materializable interface {
	Materialize(ctx *config.Context)
}

// hostResident is implemented by nodes backed by a dual-residency
// container; EnsureHost restores the host copy when only the device copy
// is valid.
type hostResident interface {
	EnsureHost()
}
