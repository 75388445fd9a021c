package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/expr"
	"github.com/vecto-ml/vecto/internal/tensor"
)

func testCtx() *config.Context {
	cfg := config.Default()
	cfg.NumWorkers = 1
	return config.NewContext(cfg)
}

func iota32(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(i + 1)
	}
	return s
}

func TestAssign4x4Sum(t *testing.T) {
	a, _ := tensor.FromSlice(iota32(16), tensor.Shape{4, 4})
	b, _ := tensor.FromSlice(iota32(16), tensor.Shape{4, 4})
	c := tensor.Zeros[float32](4, 4)

	Evaluate[float32](c, expr.Add[float32](expr.NewRef(a), expr.NewRef(b)), Assign, testCtx())

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, a.At(i, j)+b.At(i, j), c.At(i, j), "C[%d][%d]", i, j)
		}
	}
}

// Every legal strategy must agree with the standard functor, including on
// sizes that leave a scalar tail (13 = 8 + 4 + 1 for width 8).
func TestStrategyEquivalence(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(device.NewSim())

	for _, n := range []int{1, 13, 64, 1000} {
		a, _ := tensor.FromSlice(iota32(n), tensor.Shape{n})
		b, _ := tensor.FromSlice(iota32(n), tensor.Shape{n})

		for _, op := range []Op{Assign, AddAssign, SubAssign, MulAssign, DivAssign} {
			want := tensor.Full[float32](3, n)
			ctx := testCtx()
			restore := ctx.ForceAssign(config.AssignStandard)
			Evaluate[float32](want, expr.Add[float32](expr.NewRef(a), expr.NewRef(b)), op, ctx)
			restore()

			for _, s := range []config.AssignStrategy{
				config.AssignDirect, config.AssignVectorized, config.AssignDevice,
			} {
				got := tensor.Full[float32](3, n)
				restore := ctx.ForceAssign(s)
				Evaluate[float32](got, expr.Add[float32](expr.NewRef(a), expr.NewRef(b)), op, ctx)
				restore()

				if !got.CPUValid() {
					got.EnsureCPU(device.Active())
				}
				for i := 0; i < n; i++ {
					assert.InDelta(t, want.Get(i), got.Get(i), 1e-5,
						"op %s strategy %s n=%d index %d", op, s, n, i)
				}
			}
		}
	}
}

func TestVectorizedTailMatchesScalar(t *testing.T) {
	const n = 13
	a, _ := tensor.FromSlice(iota32(n), tensor.Shape{n})
	src := expr.Mul[float32](expr.NewRef(a), expr.NewScalar[float32](2))

	std := tensor.Zeros[float32](n)
	vec := tensor.Zeros[float32](n)
	ctx := testCtx()

	restore := ctx.ForceAssign(config.AssignStandard)
	Evaluate[float32](std, src, Assign, ctx)
	restore()

	restore = ctx.ForceAssign(config.AssignVectorized)
	Evaluate[float32](vec, src, Assign, ctx)
	restore()

	assert.Equal(t, std.Data(), vec.Data())
}

func TestStreamingAssignMatchesStandard(t *testing.T) {
	// Working set above the streaming threshold with non-aliased operands
	// takes the staged block-store path; results must match the indexed
	// functor exactly.
	n := 1 << 20
	a := make([]float32, n)
	b := make([]float32, n)
	for i := range a {
		a[i] = float32(i % 97)
		b[i] = float32(i % 89)
	}
	ad, _ := tensor.FromSlice(a, tensor.Shape{n})
	bd, _ := tensor.FromSlice(b, tensor.Shape{n})
	dst := tensor.Zeros[float32](n)

	ctx := testCtx()
	defer ctx.ForceAssign(config.AssignVectorized)()
	Evaluate[float32](dst, expr.Add[float32](expr.NewRef(ad), expr.NewRef(bd)), Assign, ctx)

	out := dst.Data()
	for i := 0; i < n; i++ {
		if want := float32(i%97) + float32(i%89); out[i] != want {
			t.Fatalf("element %d: got %v, want %v", i, out[i], want)
		}
	}
}

func TestAliasedSourceSkipsStreaming(t *testing.T) {
	// Same working-set size, but the source overlaps the destination, so
	// the staged path is barred and the in-place batched loops run.
	n := 1 << 20
	c := tensor.Zeros[float32](n)
	data := c.Data()
	for i := range data {
		data[i] = float32(i % 31)
	}

	ctx := testCtx()
	defer ctx.ForceAssign(config.AssignVectorized)()
	Evaluate[float32](c, expr.Add[float32](expr.NewRef(c), expr.NewScalar[float32](1)), Assign, ctx)

	for i := 0; i < n; i++ {
		if want := float32(i%31) + 1; data[i] != want {
			t.Fatalf("element %d: got %v, want %v", i, data[i], want)
		}
	}
}

func TestScalarBroadcastFill(t *testing.T) {
	c := tensor.Zeros[float64](3, 3)
	Evaluate[float64](c, expr.NewScalar[float64](7), Assign, testCtx())
	for i := 0; i < 9; i++ {
		assert.Equal(t, float64(7), c.Get(i))
	}
}

func TestShapeMismatchPanics(t *testing.T) {
	c := tensor.Zeros[float32](2, 2)
	src := expr.NewRef(tensor.Zeros[float32](2, 3))
	assert.Panics(t, func() { Evaluate[float32](c, src, Assign, testCtx()) })
}

func TestIntegerModAssign(t *testing.T) {
	c, _ := tensor.FromSlice([]int32{10, 11, 12, 13}, tensor.Shape{4})
	m, _ := tensor.FromSlice([]int32{3, 3, 5, 5}, tensor.Shape{4})

	Evaluate[int32](c, expr.NewRef(m), ModAssign, testCtx())

	assert.Equal(t, []int32{1, 2, 2, 3}, c.Data())
}

func TestIntegerDivision(t *testing.T) {
	c, _ := tensor.FromSlice([]int64{7, 8, 9}, tensor.Shape{3})
	d, _ := tensor.FromSlice([]int64{2, 2, 2}, tensor.Shape{3})

	Evaluate[int64](c, expr.NewRef(d), DivAssign, testCtx())

	assert.Equal(t, []int64{3, 4, 4}, c.Data(), "integer division truncates toward zero")
}

func TestOrderMismatchTransposesOnAssign(t *testing.T) {
	// Row-major [[1,2],[3,4]] assigned into a column-major destination
	// must land as the same logical matrix.
	src, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	dst := tensor.NewDense[float32](tensor.Shape{2, 2}, tensor.ColMajor)

	Evaluate[float32](dst, expr.NewRef(src), Assign, testCtx())

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.Equal(t, src.At(i, j), dst.At(i, j), "[%d][%d]", i, j)
		}
	}
	// Column-major backing: 1,3,2,4.
	assert.Equal(t, []float32{1, 3, 2, 4}, dst.Data())
}

func TestViewDestination(t *testing.T) {
	base, _ := tensor.FromSlice(make([]float32, 16), tensor.Shape{4, 4})
	v := tensor.View(base, 1, 1, 2, 2)
	src, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	// Partial-row view: no direct memory, the general path must handle it.
	Evaluate[float32](v, expr.NewRef(src), Assign, testCtx())

	assert.Equal(t, float32(1), base.At(1, 1))
	assert.Equal(t, float32(2), base.At(1, 2))
	assert.Equal(t, float32(3), base.At(2, 1))
	assert.Equal(t, float32(4), base.At(2, 2))
	assert.Equal(t, float32(0), base.At(0, 0), "outside the view must be untouched")
}

func TestCompoundAssignOnView(t *testing.T) {
	base, _ := tensor.FromSlice(iota32(16), tensor.Shape{4, 4})
	v := tensor.View(base, 0, 0, 4, 4)

	Evaluate[float32](v, expr.NewScalar[float32](10), AddAssign, testCtx())

	assert.Equal(t, float32(11), base.At(0, 0))
	assert.Equal(t, float32(26), base.At(3, 3))
}

func TestHostWriteFlags(t *testing.T) {
	c := tensor.Zeros[float32](4)
	src := expr.NewRef(tensor.Full[float32](1, 4))

	Evaluate[float32](c, src, Assign, testCtx())

	assert.True(t, c.CPUValid())
	assert.False(t, c.DevValid())
}

func TestDeviceWriteFlags(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(device.NewSim())

	c := tensor.Zeros[float32](8)
	src := expr.NewRef(tensor.Full[float32](5, 8))

	ctx := testCtx()
	defer ctx.ForceAssign(config.AssignDevice)()
	Evaluate[float32](c, src, Assign, ctx)

	assert.False(t, c.CPUValid(), "device write leaves the host copy stale")
	assert.True(t, c.DevValid())

	c.EnsureCPU(device.Active())
	for i := 0; i < 8; i++ {
		assert.Equal(t, float32(5), c.Get(i))
	}
}

func TestDeviceCompoundAssign(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(device.NewSim())

	c, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4})
	src := expr.NewRef(tensor.Full[float32](10, 4))

	ctx := testCtx()
	defer ctx.ForceAssign(config.AssignDevice)()
	Evaluate[float32](c, src, AddAssign, ctx)

	c.EnsureCPU(device.Active())
	assert.Equal(t, []float32{11, 12, 13, 14}, c.Data())
}

func TestFastCopyPreservesBothValid(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	dev := device.NewSim()
	device.Use(dev)

	src, _ := tensor.FromSlice(iota32(8), tensor.Shape{8})
	src.EnsureDevice(dev)
	require.True(t, src.CPUValid() && src.DevValid())

	dst := tensor.Zeros[float32](8)
	ctx := testCtx()
	Evaluate[float32](dst, expr.NewRef(src), Assign, ctx)

	assert.True(t, dst.CPUValid(), "block copy writes the host side")
	assert.True(t, dst.DevValid(), "a both-valid source propagates device validity")
	assert.Equal(t, iota32(8), dst.Data())
}

func TestAtLeastOneSideAlwaysValid(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(device.NewSim())

	c := tensor.Zeros[float32](16)
	src := expr.NewRef(tensor.Full[float32](2, 16))

	ctx := testCtx()
	for _, s := range []config.AssignStrategy{
		config.AssignStandard, config.AssignDevice, config.AssignVectorized,
	} {
		restore := ctx.ForceAssign(s)
		Evaluate[float32](c, src, Assign, ctx)
		restore()
		assert.True(t, c.CPUValid() || c.DevValid(), "strategy %s left no valid copy", s)
	}
}

func TestDeviceSourceRestoredForHostStrategy(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	dev := device.NewSim()
	device.Use(dev)

	// Source lives only on the device.
	src, _ := tensor.FromSlice(iota32(4), tensor.Shape{4})
	src.EnsureDevice(dev)
	src.InvalidateCPU()
	dev.Scal(4, 3, src.DeviceBuffer())

	dst := tensor.Zeros[float32](4)
	ctx := testCtx()
	defer ctx.ForceAssign(config.AssignStandard)()
	Evaluate[float32](dst, expr.NewRef(src), Assign, ctx)

	assert.Equal(t, []float32{3, 6, 9, 12}, dst.Data(),
		"host strategy must first restore the device-resident source")
}

func TestTemporaryRestoresDeviceOperand(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	dev := device.NewSim()
	device.Use(dev)

	// The left operand lives only on the device, scaled there.
	a, _ := tensor.FromSlice(iota32(4), tensor.Shape{2, 2})
	a.EnsureDevice(dev)
	a.InvalidateCPU()
	dev.Scal(4, 3, a.DeviceBuffer())

	id := tensor.Eye[float32](2)
	dst := tensor.Zeros[float32](2, 2)
	src := expr.NewMatMul[float32](expr.NewRef(a), expr.NewRef(id))
	Evaluate[float32](dst, src, Assign, testCtx())

	assert.Equal(t, []float32{3, 6, 9, 12}, dst.Data(),
		"materialization must restore device-resident operands first")
}

func TestSharedRestoresDeviceOperand(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	dev := device.NewSim()
	device.Use(dev)

	a, _ := tensor.FromSlice(iota32(4), tensor.Shape{4})
	a.EnsureDevice(dev)
	a.InvalidateCPU()
	dev.Scal(4, 2, a.DeviceBuffer())

	dst := tensor.Zeros[float32](4)
	s := expr.NewShared[float32](expr.Add[float32](expr.NewRef(a), expr.NewScalar[float32](1)))
	Evaluate[float32](dst, s, Assign, testCtx())

	assert.Equal(t, []float32{3, 5, 7, 9}, dst.Data())
}

func TestMatMulAssignEndToEnd(t *testing.T) {
	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b, _ := tensor.FromSlice([]float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	c := tensor.Zeros[float32](2, 2)

	Evaluate[float32](c, expr.NewMatMul[float32](expr.NewRef(a), expr.NewRef(b)), Assign, testCtx())

	assert.Equal(t, []float32{19, 22, 43, 50}, c.Data())
}

func TestCompositeOverTemporaryMaterializes(t *testing.T) {
	// The temporary is buried inside an elementwise composite; the
	// propagated traits must still trigger materialization.
	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b, _ := tensor.FromSlice([]float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	c := tensor.Zeros[float32](2, 2)

	mm := expr.NewMatMul[float32](expr.NewRef(a), expr.NewRef(b))
	src := expr.Add[float32](mm, expr.NewScalar[float32](1))
	Evaluate[float32](c, src, Assign, testCtx())

	assert.Equal(t, []float32{20, 23, 44, 51}, c.Data())
}

func TestSelfAliasedCompound(t *testing.T) {
	// c += c through the expression graph: reads and writes alias.
	c, _ := tensor.FromSlice(iota32(4), tensor.Shape{4})

	Evaluate[float32](c, expr.NewRef(c), AddAssign, testCtx())

	assert.Equal(t, []float32{2, 4, 6, 8}, c.Data())
}
