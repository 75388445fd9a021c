package tensor

import "fmt"

// Order is the element layout of a 2-D container.
type Order int

// Supported storage orders.
const (
	RowMajor Order = iota
	ColMajor
)

// String returns a human-readable name for the order.
func (o Order) String() string {
	if o == ColMajor {
		return "col-major"
	}
	return "row-major"
}

// Shape represents the dimensions of a container. Vectors have a single
// dimension, matrices two.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that all dimensions are positive.
func (s Shape) Validate() error {
	if len(s) == 0 || len(s) > 2 {
		return fmt.Errorf("unsupported rank %d (must be 1 or 2)", len(s))
	}
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String formats the shape like (3, 4).
func (s Shape) String() string {
	out := "("
	for i, dim := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprint(dim)
	}
	return out + ")"
}

// Strides computes element strides per dimension for the given order.
func (s Shape) Strides(order Order) []int {
	strides := make([]int, len(s))
	if len(s) == 1 {
		strides[0] = 1
		return strides
	}
	if order == RowMajor {
		strides[0], strides[1] = s[1], 1
	} else {
		strides[0], strides[1] = 1, s[0]
	}
	return strides
}
