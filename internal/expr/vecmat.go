package expr

import (
	"fmt"

	"github.com/vecto-ml/vecto/internal/backend/cpu"
	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// VecMat is the vector-matrix product temporary: (K) @ (K, N) -> (N). The
// row vector makes it a matrix product with M fixed to 1, so strategy
// selection and the kernels are shared with the matrix-product family.
type VecMat[T tensor.Element] struct {
	x, a   Node[T]
	k, n   int
	result *tensor.Dense[T]
}

// NewVecMat builds a vector-matrix product node. Panics on dimension
// mismatch.
func NewVecMat[T tensor.Element](x, a Node[T]) *VecMat[T] {
	xs, as := x.Shape(), a.Shape()
	if len(xs) != 1 || len(as) != 2 {
		panic(fmt.Sprintf("expr: vecmat requires a vector and a matrix, got %v and %v", xs, as))
	}
	if xs[0] != as[0] {
		panic(fmt.Sprintf("expr: vecmat dimension mismatch %v @ %v", xs, as))
	}
	return &VecMat[T]{x: x, a: a, k: xs[0], n: as[1]}
}

func (g *VecMat[T]) Children() []AnyNode { return []AnyNode{g.x, g.a} }
func (g *VecMat[T]) Shape() tensor.Shape { return tensor.Shape{g.n} }
func (g *VecMat[T]) Size() int           { return g.n }
func (g *VecMat[T]) Order() tensor.Order { return tensor.RowMajor }
func (g *VecMat[T]) Get(i int) T         { return g.result.Get(i) }
func (g *VecMat[T]) Slice() []T          { return g.result.Data() }

func (g *VecMat[T]) Traits() Traits {
	return Traits{
		Direct:        true,
		Vectorizable:  true,
		ThreadSafe:    true,
		Homogeneous:   g.x.Traits().Homogeneous && g.a.Traits().Homogeneous,
		GPUComputable: tensor.DTypeOf[T]() == tensor.Float32 && device.Active() != nil,
		NeedsTemp:     true,
	}
}

func (g *VecMat[T]) Aliases(lo, hi uintptr) bool {
	if g.result != nil {
		return g.result.Overlaps(lo, hi)
	}
	return g.x.Aliases(lo, hi) || g.a.Aliases(lo, hi)
}

// Materialize computes the product once.
func (g *VecMat[T]) Materialize(ctx *config.Context) {
	if g.result != nil {
		return
	}
	x := operandSlice(g.x, ctx)
	a := operandSlice(g.a, ctx)
	out := allocTemp[T](tensor.Shape{g.n}, tensor.RowMajor)
	y := out.Data()

	dt := tensor.DTypeOf[T]()
	homogeneous := g.x.Traits().Homogeneous && g.a.Traits().Homogeneous
	par := parCfg(ctx)

	switch ChooseGemm(ctx, homogeneous, dt, 1, g.k, g.n) {
	case config.GemmDevice:
		deviceGemm(y, x, a, 1, g.k, g.n)
	case config.GemmBlas:
		blasGemm(y, x, a, 1, g.k, g.n)
	case config.GemmVec:
		cpu.GemmVec(y, x, a, 1, g.k, g.n, dt.VectorWidth(), par)
	default:
		cpu.GemmStd(y, x, a, 1, g.k, g.n, par)
	}
	g.result = out
}
