// Copyright 2026 Vecto Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public container API: dense matrices and
// vectors with dual CPU/device residency, plus rectangular views.
//
// Containers are the endpoints of expression evaluation: they appear as
// leaves on the right-hand side of a statement and as the destination on
// the left. See the expr package for building and assigning expressions.
//
// Example:
//
//	a := tensor.Zeros[float32](4, 4)
//	b := tensor.Full[float32](2, 4, 4)
//	v := tensor.View(a, 0, 0, 2, 2)
package tensor

import (
	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// Element is the constraint for supported element types.
type Element = tensor.Element

// Integer is the subset of Element supporting modulo.
type Integer = tensor.Integer

// Float is the subset of Element with floating-point semantics.
type Float = tensor.Float

// DataType represents the runtime element type of a container.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// Shape represents the dimensions of a container.
type Shape = tensor.Shape

// Order is the element layout of a 2-D container.
type Order = tensor.Order

// Storage orders.
const (
	RowMajor Order = tensor.RowMajor
	ColMajor Order = tensor.ColMajor
)

// Dense is a contiguous container with dual CPU/device residency flags.
type Dense[T Element] = tensor.Dense[T]

// SubMatrix is a rectangular view into a 2-D container.
type SubMatrix[T Element] = tensor.SubMatrix[T]

// Writable is any legal assignment destination: a container or a view.
type Writable[T Element] = tensor.Writable[T]

// NewDense allocates a zeroed container with an explicit storage order.
func NewDense[T Element](shape Shape, order Order) *Dense[T] {
	return tensor.NewDense[T](shape, order)
}

// FromSlice wraps an existing slice as a row-major container without
// copying.
func FromSlice[T Element](data []T, shape Shape) (*Dense[T], error) {
	return tensor.FromSlice(data, shape)
}

// Zeros returns a zero-filled row-major container.
func Zeros[T Element](shape ...int) *Dense[T] { return tensor.Zeros[T](shape...) }

// Full returns a container filled with the given value.
func Full[T Element](value T, shape ...int) *Dense[T] { return tensor.Full(value, shape...) }

// Eye returns the n×n identity matrix.
func Eye[T Element](n int) *Dense[T] { return tensor.Eye[T](n) }

// View returns the [i:i+rows, j:j+cols) window of d.
func View[T Element](d *Dense[T], i, j, rows, cols int) *SubMatrix[T] {
	return tensor.View(d, i, j, rows, cols)
}

// Device is the accelerator contract containers synchronize against.
type Device = device.Device

// UseDevice registers the process-wide active device; nil disables the
// device paths.
func UseDevice(d Device) { device.Use(d) }

// ActiveDevice returns the registered device, or nil.
func ActiveDevice() Device { return device.Active() }

// NewSimDevice returns the host-memory reference device, useful for tests
// and for exercising device strategies without hardware.
func NewSimDevice() *device.Sim { return device.NewSim() }
