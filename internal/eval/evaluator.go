package eval

import (
	"fmt"

	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/expr"
	"github.com/vecto-ml/vecto/internal/parallel"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// parCfg maps the engine configuration onto the fork-join pool settings.
// Zero-valued fields fall back to the pool and package defaults.
func parCfg(ctx *config.Context) parallel.Config {
	cfg := parallel.DefaultConfig()
	if ctx.Cfg.NumWorkers > 0 {
		cfg.NumWorkers = ctx.Cfg.NumWorkers
		cfg.Enabled = cfg.NumWorkers > 1
	}
	cfg.MinChunkSize = ctx.Cfg.ParallelThreshold
	if cfg.MinChunkSize == 0 {
		cfg.MinChunkSize = config.ParallelThreshold
	}
	return cfg
}

// Evaluate runs `dst op= src` for one statement:
//
//  1. materialize temporaries in the source graph,
//  2. adapt a storage-order mismatch away for plain =,
//  3. select a strategy,
//  4. run it,
//  5. update the destination's residency flags.
//
// Shape mismatches are programmer error and panic. A nil ctx uses the
// process-wide default context.
func Evaluate[T tensor.Element](dst tensor.Writable[T], src expr.Node[T], op Op, ctx *config.Context) {
	if ctx == nil {
		ctx = config.DefaultContext()
	}
	checkShapes(dst, src, op)

	m := expr.NewMaterializer(ctx)
	if src.Traits().NeedsTemp {
		m.Visit(src)
	}

	// Order mismatch only matters for 2-D, non-generator sources under
	// plain assignment; the adaptor re-reads the source in the
	// destination's order so no strategy has to care.
	if op == Assign && len(dst.Shape()) == 2 && src.Size() >= 0 &&
		src.Order() != dst.Order() && !src.Traits().Generator {
		src = expr.NewTransposed(src)
	}

	n := dst.Size()
	out, dstDirect := dst.Slice()
	f := facts{
		src:       src.Traits(),
		dstDirect: dstDirect,
		dstFull:   dst.Size() == dst.Container().Size(),
		sameOrder: src.Size() < 0 || src.Traits().Generator || src.Order() == dst.Order(),
		n:         n,
	}
	strategy := ChooseAssign(ctx, op, f)

	dstC := dst.Container()
	if strategy != config.AssignDevice {
		// Host strategies read host memory; restore any leaf whose only
		// valid copy lives on the device.
		m.EnsureHost(src)
		if !dstC.CPUValid() {
			dstC.EnsureCPU(device.Active())
		}
	}

	switch strategy {
	case config.AssignFastCopy:
		srcSlice := src.(expr.Direct[T]).Slice()
		fastCopyAssign(out, srcSlice)
		finishFastCopy(dstC, src, ctx)
		return
	case config.AssignDevice:
		deviceAssign(dstC, src, op, ctx)
		dstC.ValidateDev()
		dstC.InvalidateCPU()
		return
	case config.AssignVectorized:
		vectorizedAssign(out, src, op, ctx)
	case config.AssignDirect:
		directAssign(out, src, op, ctx)
	default:
		standardAssign(dst, src, op, n)
	}

	// Host-side write: the host copy is now the truth.
	dstC.ValidateCPU()
	if dstC.DevValid() {
		dstC.InvalidateDev()
	}
}

// finishFastCopy updates flags after a block copy. When the source
// container also holds a valid device copy, the destination's device
// buffer is refreshed too, so the copy preserves both-sided validity.
func finishFastCopy[T tensor.Element](dstC *tensor.Dense[T], src expr.Node[T], ctx *config.Context) {
	dstC.ValidateCPU()

	if ref, ok := src.(interface{ Container() *tensor.Dense[T] }); ok {
		srcC := ref.Container()
		if dev := device.Active(); dev != nil && srcC.DevValid() && srcC.DeviceBuffer() != nil {
			if dstC.DevValid() {
				dstC.InvalidateDev()
			}
			dstC.EnsureDevice(dev)
			return
		}
	}
	if dstC.DevValid() {
		dstC.InvalidateDev()
	}
}

// checkShapes panics on operand shapes incompatible with an elementwise
// assignment. Scalar broadcast sources match any destination.
func checkShapes[T tensor.Element](dst tensor.Writable[T], src expr.Node[T], op Op) {
	if src.Size() < 0 {
		return
	}
	if !src.Shape().Equal(dst.Shape()) {
		panic(fmt.Sprintf("eval: shape mismatch in %s: destination %v, source %v",
			op, dst.Shape(), src.Shape()))
	}
}
