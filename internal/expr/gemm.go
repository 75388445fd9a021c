package expr

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vecto-ml/vecto/internal/backend/cpu"
	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// gemmBlasLegal reports whether the BLAS strategy can serve the operand set.
func gemmBlasLegal(ctx *config.Context, homogeneous bool, dt tensor.DataType) bool {
	return ctx.Cfg.BlasEnabled && homogeneous && (dt == tensor.Float32 || dt == tensor.Float64)
}

// gemmDeviceLegal reports whether the device strategy can serve the operand set.
func gemmDeviceLegal(homogeneous bool, dt tensor.DataType) bool {
	return device.Active() != nil && homogeneous && dt == tensor.Float32
}

// ChooseGemm is the decision function for the matrix-multiply family. It is
// deterministic in its inputs. A forced strategy that is illegal for the
// operand set logs a warning and degrades to the unforced choice.
func ChooseGemm(ctx *config.Context, homogeneous bool, dt tensor.DataType, m, k, n int) config.GemmStrategy {
	if forced, ok := ctx.ForcedGemm(); ok {
		if gemmForcedLegal(forced, ctx, homogeneous, dt) {
			return forced
		}
		logrus.Warnf("forced gemm strategy %s is not legal for %s operands (homogeneous=%v); using default",
			forced, dt, homogeneous)
	}

	// Kernel-launch and call overhead dominate tiny products; stay on the
	// cheap host paths regardless of what is compiled in.
	small := m*k <= config.GemmSmallMax && k*n <= config.GemmSmallMax
	if !small {
		if gemmDeviceLegal(homogeneous, dt) && m*n >= config.GemmDeviceMin {
			return config.GemmDevice
		}
		if gemmBlasLegal(ctx, homogeneous, dt) {
			return config.GemmBlas
		}
	}
	if ctx.Cfg.VectorizeEnabled {
		return config.GemmVec
	}
	return config.GemmStd
}

func gemmForcedLegal(s config.GemmStrategy, ctx *config.Context, homogeneous bool, dt tensor.DataType) bool {
	switch s {
	case config.GemmBlas:
		return gemmBlasLegal(ctx, homogeneous, dt)
	case config.GemmDevice:
		return gemmDeviceLegal(homogeneous, dt)
	case config.GemmVec:
		return ctx.Cfg.VectorizeEnabled
	case config.GemmStd:
		return true
	default:
		return false
	}
}

// MatMul is the matrix-product temporary: (M, K) @ (K, N) -> (M, N). The
// product is computed into an owned buffer when the materializer visits the
// node; afterwards the node reads like a plain container.
type MatMul[T tensor.Element] struct {
	a, b    Node[T]
	m, k, n int
	result  *tensor.Dense[T]
}

// NewMatMul builds a matrix-product node. Panics on dimension mismatch.
func NewMatMul[T tensor.Element](a, b Node[T]) *MatMul[T] {
	as, bs := a.Shape(), b.Shape()
	if len(as) != 2 || len(bs) != 2 {
		panic(fmt.Sprintf("expr: matmul requires 2-D operands, got %v and %v", as, bs))
	}
	if as[1] != bs[0] {
		panic(fmt.Sprintf("expr: matmul dimension mismatch %v @ %v", as, bs))
	}
	return &MatMul[T]{a: a, b: b, m: as[0], k: as[1], n: bs[1]}
}

func (g *MatMul[T]) Children() []AnyNode { return []AnyNode{g.a, g.b} }
func (g *MatMul[T]) Shape() tensor.Shape { return tensor.Shape{g.m, g.n} }
func (g *MatMul[T]) Size() int           { return g.m * g.n }
func (g *MatMul[T]) Order() tensor.Order { return tensor.RowMajor }

func (g *MatMul[T]) Get(i int) T {
	return g.result.Get(i)
}

// Slice returns the materialized product.
func (g *MatMul[T]) Slice() []T { return g.result.Data() }

// Result returns the owned buffer holding the product.
func (g *MatMul[T]) Result() *tensor.Dense[T] { return g.result }

func (g *MatMul[T]) Traits() Traits {
	return Traits{
		Direct:        true,
		Vectorizable:  true,
		ThreadSafe:    true,
		Homogeneous:   g.a.Traits().Homogeneous && g.b.Traits().Homogeneous,
		GPUComputable: tensor.DTypeOf[T]() == tensor.Float32 && device.Active() != nil,
		NeedsTemp:     true,
	}
}

func (g *MatMul[T]) Aliases(lo, hi uintptr) bool {
	// Once materialized the node reads only its own buffer.
	if g.result != nil {
		return g.result.Overlaps(lo, hi)
	}
	return g.a.Aliases(lo, hi) || g.b.Aliases(lo, hi)
}

// Materialize computes the product once.
func (g *MatMul[T]) Materialize(ctx *config.Context) {
	if g.result != nil {
		return
	}
	a := operandSlice(g.a, ctx)
	b := operandSlice(g.b, ctx)
	out := allocTemp[T](tensor.Shape{g.m, g.n}, tensor.RowMajor)
	c := out.Data()

	dt := tensor.DTypeOf[T]()
	homogeneous := g.a.Traits().Homogeneous && g.b.Traits().Homogeneous
	par := parCfg(ctx)

	switch ChooseGemm(ctx, homogeneous, dt, g.m, g.k, g.n) {
	case config.GemmDevice:
		deviceGemm(c, a, b, g.m, g.k, g.n)
	case config.GemmBlas:
		blasGemm(c, a, b, g.m, g.k, g.n)
	case config.GemmVec:
		cpu.GemmVec(c, a, b, g.m, g.k, g.n, dt.VectorWidth(), par)
	default:
		cpu.GemmStd(c, a, b, g.m, g.k, g.n, par)
	}
	g.result = out
}

// deviceGemm runs the product on the active device and downloads the
// result. Scratch buffers come from the device pool.
func deviceGemm[T tensor.Element](c, a, b []T, m, k, n int) {
	dev := device.Active()
	pool := device.Scratch()
	cf := anyF32(c)
	af, bf := anyF32(a), anyF32(b)

	ab := pool.Acquire(len(af) * 4)
	bb := pool.Acquire(len(bf) * 4)
	cb := pool.Acquire(len(cf) * 4)
	defer pool.Put(ab)
	defer pool.Put(bb)
	defer pool.Put(cb)

	dev.Upload(ab, f32Bytes(af))
	dev.Upload(bb, f32Bytes(bf))
	dev.Gemm(m, k, n, ab, bb, cb)
	dev.Download(f32Bytes(cf), cb)
}

// operandSlice returns the operand's elements as one contiguous row-major
// slice, evaluating into a temporary when the operand is not direct.
func operandSlice[T tensor.Element](n Node[T], ctx *config.Context) []T {
	if d, ok := n.(Direct[T]); ok && n.Traits().Direct && n.Order() == tensor.RowMajor {
		return d.Slice()
	}
	if n.Order() == tensor.ColMajor {
		n = NewTransposed(n)
	}
	tmp := allocTemp[T](n.Shape().Clone(), tensor.RowMajor)
	fillTemp(tmp.Data(), n, ctx)
	return tmp.Data()
}
