package expr

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vecto-ml/vecto/internal/backend/cpu"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// convBlasLegal reports whether the BLAS strategy can serve the operand set.
// The BLAS path lowers the convolution to a matrix-vector product over an
// im2col buffer, so it has the same type requirements as gemm.
func convBlasLegal(ctx *config.Context, homogeneous bool, dt tensor.DataType) bool {
	return ctx.Cfg.BlasEnabled && homogeneous && (dt == tensor.Float32 || dt == tensor.Float64)
}

// ChooseConv is the decision function for the convolution family.
// Deterministic in its inputs; an illegal forced strategy logs a warning
// and degrades to the unforced choice.
func ChooseConv(ctx *config.Context, homogeneous bool, dt tensor.DataType, macs int) config.ConvStrategy {
	if forced, ok := ctx.ForcedConv(); ok {
		legal := true
		switch forced {
		case config.ConvBlas:
			legal = convBlasLegal(ctx, homogeneous, dt)
		case config.ConvVec:
			legal = ctx.Cfg.VectorizeEnabled
		}
		if legal {
			return forced
		}
		logrus.Warnf("forced conv strategy %s is not legal for %s operands (homogeneous=%v); using default",
			forced, dt, homogeneous)
	}

	if convBlasLegal(ctx, homogeneous, dt) && macs > config.GemmSmallMax {
		return config.ConvBlas
	}
	if ctx.Cfg.VectorizeEnabled {
		return config.ConvVec
	}
	return config.ConvStd
}

// Conv2D is the valid 2-D convolution temporary: an (H, W) input correlated
// with a (KH, KW) kernel into an (H-KH+1, W-KW+1) output.
type Conv2D[T tensor.Element] struct {
	in, kernel Node[T]
	h, w       int
	kh, kw     int
	result     *tensor.Dense[T]
}

// NewConv2D builds a valid-convolution node. Panics when the kernel does
// not fit inside the input.
func NewConv2D[T tensor.Element](in, kernel Node[T]) *Conv2D[T] {
	is, ks := in.Shape(), kernel.Shape()
	if len(is) != 2 || len(ks) != 2 {
		panic(fmt.Sprintf("expr: conv2d requires 2-D operands, got %v and %v", is, ks))
	}
	if ks[0] > is[0] || ks[1] > is[1] {
		panic(fmt.Sprintf("expr: conv2d kernel %v larger than input %v", ks, is))
	}
	return &Conv2D[T]{in: in, kernel: kernel, h: is[0], w: is[1], kh: ks[0], kw: ks[1]}
}

func (c *Conv2D[T]) outDims() (int, int) { return c.h - c.kh + 1, c.w - c.kw + 1 }

func (c *Conv2D[T]) Children() []AnyNode { return []AnyNode{c.in, c.kernel} }

func (c *Conv2D[T]) Shape() tensor.Shape {
	oh, ow := c.outDims()
	return tensor.Shape{oh, ow}
}

func (c *Conv2D[T]) Size() int {
	oh, ow := c.outDims()
	return oh * ow
}

func (c *Conv2D[T]) Order() tensor.Order { return tensor.RowMajor }
func (c *Conv2D[T]) Get(i int) T         { return c.result.Get(i) }
func (c *Conv2D[T]) Slice() []T          { return c.result.Data() }

func (c *Conv2D[T]) Traits() Traits {
	return Traits{
		Direct:       true,
		Vectorizable: true,
		ThreadSafe:   true,
		Homogeneous:  c.in.Traits().Homogeneous && c.kernel.Traits().Homogeneous,
		NeedsTemp:    true,
	}
}

func (c *Conv2D[T]) Aliases(lo, hi uintptr) bool {
	if c.result != nil {
		return c.result.Overlaps(lo, hi)
	}
	return c.in.Aliases(lo, hi) || c.kernel.Aliases(lo, hi)
}

// Materialize computes the convolution once.
func (c *Conv2D[T]) Materialize(ctx *config.Context) {
	if c.result != nil {
		return
	}
	in := operandSlice(c.in, ctx)
	kernel := operandSlice(c.kernel, ctx)
	oh, ow := c.outDims()
	out := allocTemp[T](tensor.Shape{oh, ow}, tensor.RowMajor)

	dt := tensor.DTypeOf[T]()
	homogeneous := c.in.Traits().Homogeneous && c.kernel.Traits().Homogeneous
	macs := oh * ow * c.kh * c.kw

	switch ChooseConv(ctx, homogeneous, dt, macs) {
	case config.ConvBlas:
		c.blasConv(out.Data(), in, kernel, oh, ow)
	case config.ConvVec:
		cpu.Conv2DValidVec(out.Data(), in, kernel, c.h, c.w, c.kh, c.kw, dt.VectorWidth(), parCfg(ctx))
	default:
		cpu.Conv2DValid(out.Data(), in, kernel, c.h, c.w, c.kh, c.kw, parCfg(ctx))
	}
	c.result = out
}

// blasConv lowers the convolution to out = im2col(in) · vec(kernel):
// each im2col row holds the kh×kw window for one output position.
func (c *Conv2D[T]) blasConv(out, in, kernel []T, oh, ow int) {
	kn := c.kh * c.kw
	cols := allocTemp[T](tensor.Shape{oh * ow, kn}, tensor.RowMajor).Data()
	for i := 0; i < oh; i++ {
		for j := 0; j < ow; j++ {
			row := cols[(i*ow+j)*kn:]
			for ki := 0; ki < c.kh; ki++ {
				copy(row[ki*c.kw:(ki+1)*c.kw], in[(i+ki)*c.w+j:(i+ki)*c.w+j+c.kw])
			}
		}
	}
	blasGemv(out, cols, kernel, oh*ow, kn)
}
