package eval

import (
	"unsafe"

	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/expr"
	"github.com/vecto-ml/vecto/internal/parallel"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// combine applies an assignment operator to the current destination value
// and the incoming source value.
func combine[T tensor.Element](op Op, dst, src T) T {
	switch op {
	case Assign:
		return src
	case AddAssign:
		return dst + src
	case SubAssign:
		return dst - src
	case MulAssign:
		return dst * src
	case DivAssign:
		return dst / src
	case ModAssign:
		return modElem(dst, src)
	default:
		panic("eval: unknown assignment operator")
	}
}

func modElem[T tensor.Element](l, r T) T {
	switch lv := any(l).(type) {
	case int32:
		return any(lv % any(r).(int32)).(T)
	case int64:
		return any(lv % any(r).(int64)).(T)
	default:
		panic("eval: modulo on non-integer elements")
	}
}

// standardAssign reads and writes every element through the indexed
// interfaces. Always legal; the fallback for any operand layout.
func standardAssign[T tensor.Element](dst tensor.Writable[T], src expr.Node[T], op Op, n int) {
	if op == Assign {
		for i := 0; i < n; i++ {
			dst.Set(i, src.Get(i))
		}
		return
	}
	for i := 0; i < n; i++ {
		dst.Set(i, combine(op, dst.Get(i), src.Get(i)))
	}
}

// directAssign writes through the destination's raw memory while reading
// the source through the indexed interface. Splits the index range across
// workers when the source allows concurrent reads and the count clears the
// parallel threshold.
func directAssign[T tensor.Element](out []T, src expr.Node[T], op Op, ctx *config.Context) {
	par := parCfg(ctx)
	if !src.Traits().ThreadSafe {
		par.Enabled = false
	}
	if op == Assign {
		parallel.Range(len(out), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				out[i] = src.Get(i)
			}
		}, par)
		return
	}
	parallel.Range(len(out), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = combine(op, out[i], src.Get(i))
		}
	}, par)
}

// fastCopyAssign moves one contiguous block. Legal only for plain = with
// direct, same-order, same-type operands.
func fastCopyAssign[T tensor.Element](out []T, src []T) {
	copy(out, src)
}

// vectorizedAssign processes the range in width-sized batches with a
// 4x-unrolled main loop, then single batches, then a scalar tail. The
// batches only reorder independent per-element work, so results match the
// standard functor exactly.
//
// When the working set is larger than the streaming threshold and the
// source does not alias the destination, elements are staged through a
// small block and stored with copy, keeping large one-shot writes from
// churning the cache.
func vectorizedAssign[T tensor.Element](out []T, src expr.Node[T], op Op, ctx *config.Context) {
	n := len(out)
	if n == 0 {
		return
	}
	width := tensor.DTypeOf[T]().VectorWidth()

	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	lo := uintptr(unsafe.Pointer(&out[0]))
	hi := lo + uintptr(n)*unsafe.Sizeof(zero)
	streaming := n*elemSize > config.StreamingBytes && !src.Aliases(lo, hi)

	par := parCfg(ctx)
	if !src.Traits().ThreadSafe {
		par.Enabled = false
	}

	if streaming && op == Assign {
		// Stage batches in a block, then block-store them.
		parallel.Range(n, func(s, e int) {
			var block [streamBlock]T
			for s < e {
				m := min(streamBlock, e-s)
				for i := 0; i < m; i++ {
					block[i] = src.Get(s + i)
				}
				copy(out[s:s+m], block[:m])
				s += m
			}
		}, par)
		return
	}

	parallel.Range(n, func(s, e int) {
		vectorizedSpan(out, src, op, s, e, width)
	}, par)
}

// streamBlock is the element count staged per streaming store.
const streamBlock = 1024

// vectorizedSpan runs the batched loops over [s, e).
func vectorizedSpan[T tensor.Element](out []T, src expr.Node[T], op Op, s, e, width int) {
	i := s

	// Main loop, UnrollFactor batches per iteration.
	for ; i+config.UnrollFactor*width <= e; i += config.UnrollFactor * width {
		for w := 0; w < width; w++ {
			out[i+w] = combine(op, out[i+w], src.Get(i+w))
			out[i+width+w] = combine(op, out[i+width+w], src.Get(i+width+w))
			out[i+2*width+w] = combine(op, out[i+2*width+w], src.Get(i+2*width+w))
			out[i+3*width+w] = combine(op, out[i+3*width+w], src.Get(i+3*width+w))
		}
	}
	// Single-batch loop down to the last width boundary.
	for ; i+width <= e; i += width {
		for w := 0; w < width; w++ {
			out[i+w] = combine(op, out[i+w], src.Get(i+w))
		}
	}
	// Scalar tail.
	for ; i < e; i++ {
		out[i] = combine(op, out[i], src.Get(i))
	}
}

// deviceAssign realizes the source in device memory and updates the
// destination's device buffer with a device-side primitive per operator.
// The host copy is left stale on purpose; the flags record that.
func deviceAssign[T tensor.Element](dstC *tensor.Dense[T], src expr.Node[T], op Op, ctx *config.Context) {
	dev := device.Active()
	n := dstC.Size()

	srcBuf, release := realizeDevice(src, ctx, dev)
	if release != nil {
		defer release()
	}

	dstC.EnsureDevice(dev)
	dstBuf := dstC.DeviceBuffer()

	switch op {
	case Assign:
		dev.Copy(dstBuf, srcBuf, n*4)
	case AddAssign:
		dev.Axpy(n, 1, srcBuf, dstBuf)
	case SubAssign:
		dev.Axpy(n, -1, srcBuf, dstBuf)
	case MulAssign:
		dev.Mul(n, srcBuf, dstBuf)
	case DivAssign:
		dev.Div(n, srcBuf, dstBuf)
	default:
		panic("eval: operator has no device primitive")
	}
}

// realizeDevice returns a device buffer holding the source's value. When
// the source is a container already resident on the device its buffer is
// reused and no release function is returned; otherwise the value is
// evaluated host-side and uploaded into a fresh buffer owned by the caller.
func realizeDevice[T tensor.Element](src expr.Node[T], ctx *config.Context, dev device.Device) (device.Buffer, func()) {
	if ref, ok := src.(interface{ Container() *tensor.Dense[T] }); ok {
		c := ref.Container()
		c.EnsureDevice(dev)
		return c.DeviceBuffer(), nil
	}

	tmp := expr.Force(src, ctx)
	pool := device.Scratch()
	buf := pool.Acquire(len(tmp.Bytes()))
	dev.Upload(buf, tmp.Bytes())
	return buf, func() { pool.Put(buf) }
}
