package expr

import (
	"fmt"

	"github.com/vecto-ml/vecto/internal/backend/cpu"
	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// MatVec is the matrix-vector product temporary: (M, K) @ (K) -> (M).
// Strategy selection follows the matrix-product family with N fixed to 1.
type MatVec[T tensor.Element] struct {
	a, x   Node[T]
	m, k   int
	result *tensor.Dense[T]
}

// NewMatVec builds a matrix-vector product node. Panics on dimension
// mismatch.
func NewMatVec[T tensor.Element](a, x Node[T]) *MatVec[T] {
	as, xs := a.Shape(), x.Shape()
	if len(as) != 2 || len(xs) != 1 {
		panic(fmt.Sprintf("expr: matvec requires a matrix and a vector, got %v and %v", as, xs))
	}
	if as[1] != xs[0] {
		panic(fmt.Sprintf("expr: matvec dimension mismatch %v @ %v", as, xs))
	}
	return &MatVec[T]{a: a, x: x, m: as[0], k: as[1]}
}

func (g *MatVec[T]) Children() []AnyNode { return []AnyNode{g.a, g.x} }
func (g *MatVec[T]) Shape() tensor.Shape { return tensor.Shape{g.m} }
func (g *MatVec[T]) Size() int           { return g.m }
func (g *MatVec[T]) Order() tensor.Order { return tensor.RowMajor }
func (g *MatVec[T]) Get(i int) T         { return g.result.Get(i) }
func (g *MatVec[T]) Slice() []T          { return g.result.Data() }

func (g *MatVec[T]) Traits() Traits {
	return Traits{
		Direct:        true,
		Vectorizable:  true,
		ThreadSafe:    true,
		Homogeneous:   g.a.Traits().Homogeneous && g.x.Traits().Homogeneous,
		GPUComputable: tensor.DTypeOf[T]() == tensor.Float32 && device.Active() != nil,
		NeedsTemp:     true,
	}
}

func (g *MatVec[T]) Aliases(lo, hi uintptr) bool {
	if g.result != nil {
		return g.result.Overlaps(lo, hi)
	}
	return g.a.Aliases(lo, hi) || g.x.Aliases(lo, hi)
}

// Materialize computes the product once.
func (g *MatVec[T]) Materialize(ctx *config.Context) {
	if g.result != nil {
		return
	}
	a := operandSlice(g.a, ctx)
	x := operandSlice(g.x, ctx)
	out := allocTemp[T](tensor.Shape{g.m}, tensor.RowMajor)
	y := out.Data()

	dt := tensor.DTypeOf[T]()
	homogeneous := g.a.Traits().Homogeneous && g.x.Traits().Homogeneous

	switch ChooseGemm(ctx, homogeneous, dt, g.m, g.k, 1) {
	case config.GemmDevice:
		deviceGemm(y, a, x, g.m, g.k, 1)
	case config.GemmBlas:
		blasGemv(y, a, x, g.m, g.k)
	default:
		cpu.Gemv(y, a, x, g.m, g.k, parCfg(ctx))
	}
	g.result = out
}
