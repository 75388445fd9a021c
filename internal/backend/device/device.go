// Package device abstracts the accelerator backend behind a small buffer
// and kernel interface.
//
// Compute kernels are float32 only, matching the WebGPU shader set; the
// selectors never route other element types here. Buffer transfer
// operations are raw bytes and work for any element type.
package device

import "sync"

// Buffer is an opaque device-resident allocation.
type Buffer interface {
	// Size returns the allocation size in bytes.
	Size() int
	// Release frees the device allocation. The buffer must not be used
	// afterwards.
	Release()
}

// Device is the accelerator kernel contract consumed by the evaluator.
// All operations are synchronous: when a call returns, the effect is
// visible to subsequent calls on the same device.
type Device interface {
	Name() string

	// Alloc returns an uninitialized device buffer of n bytes.
	Alloc(n int) Buffer
	// Upload copies len(src) bytes from host memory into dst.
	Upload(dst Buffer, src []byte)
	// Download copies len(dst) bytes from src into host memory.
	Download(dst []byte, src Buffer)
	// Copy copies n bytes between device buffers.
	Copy(dst, src Buffer, n int)

	// Axpy computes y[i] += alpha*x[i] over n float32 elements.
	Axpy(n int, alpha float32, x, y Buffer)
	// Scal computes x[i] *= alpha over n float32 elements.
	Scal(n int, alpha float32, x Buffer)
	// Mul computes y[i] *= x[i] over n float32 elements.
	Mul(n int, x, y Buffer)
	// Div computes y[i] /= x[i] over n float32 elements.
	Div(n int, x, y Buffer)

	// Gemm computes the row-major product c = a·b for an m×k by k×n
	// float32 multiply.
	Gemm(m, k, n int, a, b, c Buffer)
}

var (
	activeMu sync.RWMutex
	active   Device
	scratch  *Pool
)

// Use installs d as the process-wide active device. Passing nil removes
// the active device, which disables every device strategy. Any pooled
// scratch buffers of the previous device are released.
func Use(d Device) {
	activeMu.Lock()
	defer activeMu.Unlock()
	if scratch != nil {
		scratch.Drain()
		scratch = nil
	}
	active = d
	if d != nil {
		scratch = NewPool(d)
	}
}

// Active returns the installed device, or nil when none is available.
func Active() Device {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// Scratch returns the active device's temporary-buffer pool, or nil when
// no device is installed.
func Scratch() *Pool {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return scratch
}
