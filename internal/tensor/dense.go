package tensor

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/vecto-ml/vecto/internal/backend/device"
)

// Dense is a contiguous container of elements with dual residency. The host
// copy and the device copy each carry a validity flag; at least one is true
// at all times. The evaluator is the only writer of these flags.
type Dense[T Element] struct {
	data  []T
	shape Shape
	order Order

	cpuValid bool
	devValid bool
	devBuf   device.Buffer
}

// NewDense allocates a zeroed container. Panics on an invalid shape.
func NewDense[T Element](shape Shape, order Order) *Dense[T] {
	if err := shape.Validate(); err != nil {
		panic("tensor: " + err.Error())
	}
	return &Dense[T]{
		data:     make([]T, shape.NumElements()),
		shape:    shape.Clone(),
		order:    order,
		cpuValid: true,
	}
}

// FromSlice wraps an existing slice as a row-major container. The slice is
// used directly, not copied.
func FromSlice[T Element](data []T, shape Shape) (*Dense[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}
	if len(data) != shape.NumElements() {
		return nil, errors.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Dense[T]{data: data, shape: shape.Clone(), order: RowMajor, cpuValid: true}, nil
}

// Zeros returns a zero-filled row-major container.
func Zeros[T Element](shape ...int) *Dense[T] {
	return NewDense[T](Shape(shape), RowMajor)
}

// Full returns a container filled with the given value.
func Full[T Element](value T, shape ...int) *Dense[T] {
	d := NewDense[T](Shape(shape), RowMajor)
	for i := range d.data {
		d.data[i] = value
	}
	return d
}

// Eye returns the n×n identity matrix.
func Eye[T Element](n int) *Dense[T] {
	d := NewDense[T](Shape{n, n}, RowMajor)
	for i := 0; i < n; i++ {
		d.data[i*n+i] = 1
	}
	return d
}

// Shape returns the container's shape. Callers must not mutate it.
func (d *Dense[T]) Shape() Shape { return d.shape }

// Order returns the storage order.
func (d *Dense[T]) Order() Order { return d.order }

// Size returns the number of elements.
func (d *Dense[T]) Size() int { return len(d.data) }

// DType returns the runtime element type.
func (d *Dense[T]) DType() DataType { return DTypeOf[T]() }

// Rows returns the first dimension, or the length for vectors.
func (d *Dense[T]) Rows() int { return d.shape[0] }

// Cols returns the second dimension. Panics for vectors.
func (d *Dense[T]) Cols() int { return d.shape[1] }

// Data returns the backing slice. Readers must call EnsureCPU first when the
// host copy may be stale.
func (d *Dense[T]) Data() []T { return d.data }

// Get returns the element at linear index i.
func (d *Dense[T]) Get(i int) T { return d.data[i] }

// Set stores v at linear index i.
func (d *Dense[T]) Set(i int, v T) { d.data[i] = v }

// At returns the element at (i, j) honoring the storage order.
func (d *Dense[T]) At(i, j int) T {
	if d.order == RowMajor {
		return d.data[i*d.shape[1]+j]
	}
	return d.data[j*d.shape[0]+i]
}

// SetAt stores v at (i, j) honoring the storage order.
func (d *Dense[T]) SetAt(i, j int, v T) {
	if d.order == RowMajor {
		d.data[i*d.shape[1]+j] = v
	} else {
		d.data[j*d.shape[0]+i] = v
	}
}

// Slice returns the backing slice and true: a Dense container is always
// fully contiguous.
func (d *Dense[T]) Slice() ([]T, bool) { return d.data, true }

// Container returns the container itself.
func (d *Dense[T]) Container() *Dense[T] { return d }

// Bytes reinterprets the backing array as raw bytes.
func (d *Dense[T]) Bytes() []byte {
	if len(d.data) == 0 {
		return nil
	}
	var zero T
	n := len(d.data) * int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&d.data[0])), n)
}

// Mem returns the address range [lo, hi) of the backing array.
func (d *Dense[T]) Mem() (lo, hi uintptr) {
	if len(d.data) == 0 {
		return 0, 0
	}
	var zero T
	lo = uintptr(unsafe.Pointer(&d.data[0]))
	hi = lo + uintptr(len(d.data))*unsafe.Sizeof(zero)
	return lo, hi
}

// Overlaps reports whether the two containers share any backing memory.
func (d *Dense[T]) Overlaps(lo, hi uintptr) bool {
	dlo, dhi := d.Mem()
	return dlo < hi && lo < dhi
}

// CPUValid reports whether the host copy is current.
func (d *Dense[T]) CPUValid() bool { return d.cpuValid }

// DevValid reports whether the device copy is current.
func (d *Dense[T]) DevValid() bool { return d.devValid }

// ValidateCPU marks the host copy current.
func (d *Dense[T]) ValidateCPU() { d.cpuValid = true }

// ValidateDev marks the device copy current. Panics when no device buffer
// is attached.
func (d *Dense[T]) ValidateDev() {
	if d.devBuf == nil {
		panic("tensor: no device buffer to validate")
	}
	d.devValid = true
}

// InvalidateCPU marks the host copy stale. Panics if it would leave the
// container with no valid copy.
func (d *Dense[T]) InvalidateCPU() {
	if !d.devValid {
		panic("tensor: invalidating the only valid copy")
	}
	d.cpuValid = false
}

// InvalidateDev marks the device copy stale. Panics if it would leave the
// container with no valid copy.
func (d *Dense[T]) InvalidateDev() {
	if !d.cpuValid {
		panic("tensor: invalidating the only valid copy")
	}
	d.devValid = false
}

// DeviceBuffer returns the attached device buffer, or nil.
func (d *Dense[T]) DeviceBuffer() device.Buffer { return d.devBuf }

// EnsureDevice makes the device copy current on dev, allocating and
// uploading as needed. A no-op when the device copy is already valid.
func (d *Dense[T]) EnsureDevice(dev device.Device) {
	if d.devValid {
		return
	}
	if d.devBuf == nil {
		d.devBuf = dev.Alloc(len(d.Bytes()))
	}
	dev.Upload(d.devBuf, d.Bytes())
	d.devValid = true
}

// EnsureCPU makes the host copy current, downloading from the device when
// only the device copy is valid.
func (d *Dense[T]) EnsureCPU(dev device.Device) {
	if d.cpuValid {
		return
	}
	if d.devBuf == nil || !d.devValid {
		panic("tensor: no valid copy to restore host data from")
	}
	dev.Download(d.Bytes(), d.devBuf)
	d.cpuValid = true
}

// ReleaseDevice frees the device buffer. The host copy must be valid.
func (d *Dense[T]) ReleaseDevice() {
	if d.devBuf == nil {
		return
	}
	if !d.cpuValid {
		panic("tensor: releasing the only valid copy")
	}
	d.devBuf.Release()
	d.devBuf = nil
	d.devValid = false
}

// Clone returns a deep copy of the host data. The clone starts with only a
// valid host copy.
func (d *Dense[T]) Clone() *Dense[T] {
	data := make([]T, len(d.data))
	copy(data, d.data)
	return &Dense[T]{data: data, shape: d.shape.Clone(), order: d.order, cpuValid: true}
}
