package eval

import (
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/expr"
)

func directFacts(n int) facts {
	return facts{
		src: expr.Traits{
			Direct:       true,
			Vectorizable: true,
			ThreadSafe:   true,
			Homogeneous:  true,
		},
		dstDirect: true,
		dstFull:   true,
		sameOrder: true,
		n:         n,
	}
}

func TestChooseAssignPolicy(t *testing.T) {
	ctx := config.NewContext(config.Default())

	// Plain = between direct same-order containers is a block copy.
	assert.Equal(t, config.AssignFastCopy, ChooseAssign(ctx, Assign, directFacts(64)))

	// Compound ops cannot block-copy; they go vectorized.
	assert.Equal(t, config.AssignVectorized, ChooseAssign(ctx, AddAssign, directFacts(64)))

	// A non-vectorizable source with a direct destination writes raw.
	f := directFacts(64)
	f.src.Direct = false
	f.src.Vectorizable = false
	assert.Equal(t, config.AssignDirect, ChooseAssign(ctx, Assign, f))

	// An indexed-only destination forces the general path.
	f = directFacts(64)
	f.src.Direct = false
	f.dstDirect = false
	assert.Equal(t, config.AssignStandard, ChooseAssign(ctx, Assign, f))

	// Vectorization disabled skips the vectorized tier.
	plain := config.Default()
	plain.VectorizeEnabled = false
	f = directFacts(64)
	f.src.Direct = false
	assert.Equal(t, config.AssignDirect, ChooseAssign(config.NewContext(plain), Assign, f))
}

func TestChooseAssignOrderMismatchBlocksFastPaths(t *testing.T) {
	ctx := config.NewContext(config.Default())
	f := directFacts(64)
	f.sameOrder = false

	got := ChooseAssign(ctx, Assign, f)
	assert.Equal(t, config.AssignDirect, got,
		"order mismatch must fall through block copy and vectorized tiers")
}

func TestChooseAssignDeviceTier(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(device.NewSim())

	ctx := config.NewContext(config.Default())

	f := directFacts(config.DeviceMinElems)
	f.src.Direct = false
	f.src.GPUComputable = true
	assert.Equal(t, config.AssignDevice, ChooseAssign(ctx, AddAssign, f))

	// Below the transfer-amortization threshold stay on the host.
	f.n = 64
	assert.Equal(t, config.AssignVectorized, ChooseAssign(ctx, AddAssign, f))

	// A view destination cannot take the device path.
	f.n = config.DeviceMinElems
	f.dstFull = false
	assert.Equal(t, config.AssignVectorized, ChooseAssign(ctx, AddAssign, f))

	// %= has no device primitive.
	f.dstFull = true
	assert.Equal(t, config.AssignVectorized, ChooseAssign(ctx, ModAssign, f))
}

func TestChooseAssignDeterminism(t *testing.T) {
	ctx := config.NewContext(config.Default())
	f := directFacts(1000)
	first := ChooseAssign(ctx, MulAssign, f)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ChooseAssign(ctx, MulAssign, f))
	}
}

func TestChooseAssignForcedLegal(t *testing.T) {
	ctx := config.NewContext(config.Default())
	defer ctx.ForceAssign(config.AssignStandard)()

	// A forced legal strategy wins even when faster tiers apply.
	assert.Equal(t, config.AssignStandard, ChooseAssign(ctx, Assign, directFacts(64)))
}

func TestChooseAssignForcedIllegalFallsBack(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ctx := config.NewContext(config.Default())
	defer ctx.ForceAssign(config.AssignFastCopy)()

	// Block copy is illegal for +=; expect the default and a warning.
	got := ChooseAssign(ctx, AddAssign, directFacts(64))
	assert.Equal(t, config.AssignVectorized, got)
	assert.NotEmpty(t, hook.Entries)
}

func TestChooseAssignForcedDeviceWithoutDeviceFallsBack(t *testing.T) {
	prev := device.Active()
	defer device.Use(prev)
	device.Use(nil)

	hook := logtest.NewGlobal()
	defer hook.Reset()

	ctx := config.NewContext(config.Default())
	defer ctx.ForceAssign(config.AssignDevice)()

	got := ChooseAssign(ctx, Assign, directFacts(config.DeviceMinElems))
	assert.Equal(t, config.AssignFastCopy, got)
	assert.NotEmpty(t, hook.Entries)
}
