package expr

import (
	"unsafe"

	"github.com/vecto-ml/vecto/internal/backend/blas"
	"github.com/vecto-ml/vecto/internal/config"
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

// blasGemm dispatches a generic slice triple to the typed BLAS routine.
// Selection only picks the BLAS strategy for float element types.
func blasGemm[T tensor.Element](c, a, b []T, m, k, n int) {
	switch cv := any(c).(type) {
	case []float32:
		blas.Gemm32(cv, any(a).([]float32), any(b).([]float32), m, k, n)
	case []float64:
		blas.Gemm64(cv, any(a).([]float64), any(b).([]float64), m, k, n)
	default:
		panic("expr: blas gemm on non-float elements")
	}
}

// blasGemv dispatches a generic matrix-vector product to the typed routine.
func blasGemv[T tensor.Element](y, a, x []T, m, k int) {
	switch yv := any(y).(type) {
	case []float32:
		blas.Gemv32(yv, any(a).([]float32), any(x).([]float32), m, k)
	case []float64:
		blas.Gemv64(yv, any(a).([]float64), any(x).([]float64), m, k)
	default:
		panic("expr: blas gemv on non-float elements")
	}
}

// anyF32 asserts a generic slice to float32. Callers guard with the
// element type before device dispatch.
func anyF32[T tensor.Element](s []T) []float32 {
	return any(s).([]float32)
}

// f32Bytes reinterprets a float32 slice as raw bytes for device transfers.
func f32Bytes(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}
