package device

import (
	"fmt"
	"unsafe"
)

// Verify that Sim implements Device.
var _ Device = (*Sim)(nil)

// Sim is a host-memory reference device. It implements the full Device
// contract with plain slices, so residency semantics (upload, download,
// stale CPU side) behave exactly as on a real accelerator while remaining
// runnable everywhere. It is also the device used by the test suite.
type Sim struct{}

// NewSim creates a simulated device.
func NewSim() *Sim {
	return &Sim{}
}

// Name returns the device name.
func (s *Sim) Name() string { return "sim" }

type simBuffer struct {
	data []byte
}

func (b *simBuffer) Size() int { return len(b.data) }

func (b *simBuffer) Release() { b.data = nil }

func (b *simBuffer) f32() []float32 {
	if len(b.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.data[0])), len(b.data)/4)
}

// Alloc returns an uninitialized buffer of n bytes.
func (s *Sim) Alloc(n int) Buffer {
	return &simBuffer{data: make([]byte, n)}
}

// Upload copies host bytes into a buffer.
func (s *Sim) Upload(dst Buffer, src []byte) {
	copy(dst.(*simBuffer).data, src)
}

// Download copies buffer bytes back to host memory.
func (s *Sim) Download(dst []byte, src Buffer) {
	copy(dst, src.(*simBuffer).data)
}

// Copy copies n bytes between buffers.
func (s *Sim) Copy(dst, src Buffer, n int) {
	copy(dst.(*simBuffer).data[:n], src.(*simBuffer).data[:n])
}

// Axpy computes y += alpha*x.
func (s *Sim) Axpy(n int, alpha float32, x, y Buffer) {
	xs, ys := x.(*simBuffer).f32(), y.(*simBuffer).f32()
	for i := 0; i < n; i++ {
		ys[i] += alpha * xs[i]
	}
}

// Scal computes x *= alpha.
func (s *Sim) Scal(n int, alpha float32, x Buffer) {
	xs := x.(*simBuffer).f32()
	for i := 0; i < n; i++ {
		xs[i] *= alpha
	}
}

// Mul computes y *= x.
func (s *Sim) Mul(n int, x, y Buffer) {
	xs, ys := x.(*simBuffer).f32(), y.(*simBuffer).f32()
	for i := 0; i < n; i++ {
		ys[i] *= xs[i]
	}
}

// Div computes y /= x.
func (s *Sim) Div(n int, x, y Buffer) {
	xs, ys := x.(*simBuffer).f32(), y.(*simBuffer).f32()
	for i := 0; i < n; i++ {
		ys[i] /= xs[i]
	}
}

// Gemm computes c = a·b, row major.
func (s *Sim) Gemm(m, k, n int, a, b, c Buffer) {
	as, bs, cs := a.(*simBuffer).f32(), b.(*simBuffer).f32(), c.(*simBuffer).f32()
	if len(as) < m*k || len(bs) < k*n || len(cs) < m*n {
		panic(fmt.Sprintf("sim: gemm buffer too small for %dx%dx%d", m, k, n))
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for l := 0; l < k; l++ {
				sum += as[i*k+l] * bs[l*n+j]
			}
			cs[i*n+j] = sum
		}
	}
}
