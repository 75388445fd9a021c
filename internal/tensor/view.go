package tensor

// Writable is a destination the evaluator can assign into: the full
// container itself, or a rectangular view of one.
type Writable[T Element] interface {
	Shape() Shape
	Order() Order
	Size() int
	Get(i int) T
	Set(i int, v T)

	// Slice returns the destination's elements as one contiguous slice of
	// backing memory when possible. Views spanning partial rows return
	// (nil, false) and must be addressed through Get/Set.
	Slice() ([]T, bool)

	// Container returns the backing container, the unit residency flags
	// are tracked on.
	Container() *Dense[T]
}

// SubMatrix is a rectangular view into a 2-D container. Elements are
// addressed in the base container's storage order; the view owns no memory.
type SubMatrix[T Element] struct {
	base       *Dense[T]
	rowOff     int
	colOff     int
	rows, cols int
}

// View returns the [i:i+rows, j:j+cols) window of d. Panics when the window
// falls outside the container.
func View[T Element](d *Dense[T], i, j, rows, cols int) *SubMatrix[T] {
	if len(d.shape) != 2 {
		panic("tensor: view requires a 2-D container")
	}
	if i < 0 || j < 0 || rows <= 0 || cols <= 0 ||
		i+rows > d.shape[0] || j+cols > d.shape[1] {
		panic("tensor: view out of range")
	}
	return &SubMatrix[T]{base: d, rowOff: i, colOff: j, rows: rows, cols: cols}
}

// Shape returns the view's dimensions.
func (v *SubMatrix[T]) Shape() Shape { return Shape{v.rows, v.cols} }

// Order returns the base container's storage order.
func (v *SubMatrix[T]) Order() Order { return v.base.order }

// Size returns the number of elements in the view.
func (v *SubMatrix[T]) Size() int { return v.rows * v.cols }

// At returns the element at (i, j) of the view.
func (v *SubMatrix[T]) At(i, j int) T {
	return v.base.At(v.rowOff+i, v.colOff+j)
}

// SetAt stores the element at (i, j) of the view.
func (v *SubMatrix[T]) SetAt(i, j int, val T) {
	v.base.SetAt(v.rowOff+i, v.colOff+j, val)
}

// Get returns the element at linear index i in the view's storage order.
func (v *SubMatrix[T]) Get(i int) T {
	if v.base.order == RowMajor {
		return v.At(i/v.cols, i%v.cols)
	}
	return v.At(i%v.rows, i/v.rows)
}

// Set stores val at linear index i in the view's storage order.
func (v *SubMatrix[T]) Set(i int, val T) {
	if v.base.order == RowMajor {
		v.SetAt(i/v.cols, i%v.cols, val)
	} else {
		v.SetAt(i%v.rows, i/v.rows, val)
	}
}

// Contiguous reports whether the view covers whole rows (or whole columns
// in column-major order) of consecutive base memory.
func (v *SubMatrix[T]) Contiguous() bool {
	if v.base.order == RowMajor {
		return v.colOff == 0 && v.cols == v.base.shape[1]
	}
	return v.rowOff == 0 && v.rows == v.base.shape[0]
}

// Slice returns the view's elements as a slice of base memory when the view
// is contiguous.
func (v *SubMatrix[T]) Slice() ([]T, bool) {
	if !v.Contiguous() {
		return nil, false
	}
	if v.base.order == RowMajor {
		start := v.rowOff * v.base.shape[1]
		return v.base.data[start : start+v.rows*v.cols], true
	}
	start := v.colOff * v.base.shape[0]
	return v.base.data[start : start+v.rows*v.cols], true
}

// Container returns the base container.
func (v *SubMatrix[T]) Container() *Dense[T] { return v.base }

var (
	_ Writable[float32] = (*Dense[float32])(nil)
	_ Writable[float32] = (*SubMatrix[float32])(nil)
)
