// Package tensor provides the dense containers and views the evaluation
// engine reads from and assigns into.
package tensor

import "github.com/vecto-ml/vecto/internal/config"

// Element is the constraint for supported element types.
type Element interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// Integer is the subset of Element supporting modulo.
type Integer interface {
	~int32 | ~int64
}

// Float is the subset of Element with floating-point semantics.
type Float interface {
	~float32 | ~float64
}

// DataType represents runtime type information for containers.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// VectorWidth returns the number of lanes a batched kernel processes per
// step for this element size.
func (dt DataType) VectorWidth() int {
	if dt.Size() == 4 {
		return config.VectorWidth4
	}
	return config.VectorWidth8
}

// DTypeOf infers the DataType for a generic element type T.
func DTypeOf[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		panic("unsupported element type")
	}
}
