package expr

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/tensor"
)

func TestChooseGemmDefaultPolicy(t *testing.T) {
	ctx := config.NewContext(config.Default())

	// Large homogeneous floats go to the library backend.
	got := ChooseGemm(ctx, true, tensor.Float64, 512, 512, 512)
	assert.Equal(t, config.GemmBlas, got)

	// Integer elements have no BLAS routine.
	got = ChooseGemm(ctx, true, tensor.Int32, 512, 512, 512)
	assert.Equal(t, config.GemmVec, got)

	// Mixed-precision trees are excluded from the library backend.
	got = ChooseGemm(ctx, false, tensor.Float32, 512, 512, 512)
	assert.Equal(t, config.GemmVec, got)

	// With vectorization off everything lands on the reference kernel.
	plain := config.Default()
	plain.VectorizeEnabled = false
	plain.BlasEnabled = false
	got = ChooseGemm(config.NewContext(plain), true, tensor.Float32, 512, 512, 512)
	assert.Equal(t, config.GemmStd, got)
}

func TestChooseGemmSmallBypassesHeavyBackends(t *testing.T) {
	ctx := config.NewContext(config.Default())

	// A 1x1 by 1x1 product must stay on the cheap host path even with
	// the library backend enabled.
	got := ChooseGemm(ctx, true, tensor.Float32, 1, 1, 1)
	assert.NotEqual(t, config.GemmBlas, got)
	assert.NotEqual(t, config.GemmDevice, got)
	assert.Equal(t, config.GemmVec, got)
}

func TestChooseGemmDeviceThreshold(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(device.NewSim())

	ctx := config.NewContext(config.Default())

	got := ChooseGemm(ctx, true, tensor.Float32, 512, 512, 512)
	assert.Equal(t, config.GemmDevice, got)

	// Below the device threshold the library backend wins.
	got = ChooseGemm(ctx, true, tensor.Float32, 128, 128, 128)
	assert.Equal(t, config.GemmBlas, got)

	// float64 has no device kernel.
	got = ChooseGemm(ctx, true, tensor.Float64, 512, 512, 512)
	assert.Equal(t, config.GemmBlas, got)
}

func TestChooseGemmDeterminism(t *testing.T) {
	ctx := config.NewContext(config.Default())
	first := ChooseGemm(ctx, true, tensor.Float32, 200, 100, 300)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ChooseGemm(ctx, true, tensor.Float32, 200, 100, 300))
	}
}

func TestChooseGemmForcedLegal(t *testing.T) {
	ctx := config.NewContext(config.Default())
	defer ctx.ForceGemm(config.GemmBlas)()

	// Forcing bypasses the small-size heuristic.
	got := ChooseGemm(ctx, true, tensor.Float32, 1, 1, 1)
	assert.Equal(t, config.GemmBlas, got)
}

func TestChooseGemmForcedIllegalFallsBack(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ctx := config.NewContext(config.Default())
	defer ctx.ForceGemm(config.GemmBlas)()

	// BLAS cannot serve integer operands; expect the unforced choice and
	// a warning, never a crash.
	got := ChooseGemm(ctx, true, tensor.Int64, 512, 512, 512)
	assert.Equal(t, config.GemmVec, got)

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "not legal")
}

func TestChooseGemmForcedDeviceWithoutDeviceFallsBack(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(nil)

	hook := logtest.NewGlobal()
	defer hook.Reset()

	ctx := config.NewContext(config.Default())
	defer ctx.ForceGemm(config.GemmDevice)()

	got := ChooseGemm(ctx, true, tensor.Float32, 512, 512, 512)
	assert.Equal(t, config.GemmBlas, got)
	assert.NotEmpty(t, hook.Entries)
}

func TestChooseConvPolicy(t *testing.T) {
	ctx := config.NewContext(config.Default())

	assert.Equal(t, config.ConvBlas, ChooseConv(ctx, true, tensor.Float32, 1<<20))
	assert.Equal(t, config.ConvVec, ChooseConv(ctx, true, tensor.Float32, 64))
	assert.Equal(t, config.ConvVec, ChooseConv(ctx, true, tensor.Int32, 1<<20))

	plain := config.Default()
	plain.VectorizeEnabled = false
	assert.Equal(t, config.ConvStd, ChooseConv(config.NewContext(plain), true, tensor.Int32, 64))
}

func TestChooseConvForcedIllegalFallsBack(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ctx := config.NewContext(config.Default())
	defer ctx.ForceConv(config.ConvBlas)()

	got := ChooseConv(ctx, true, tensor.Int32, 1<<20)
	assert.Equal(t, config.ConvVec, got)
	assert.NotEmpty(t, hook.Entries)
}
