package cpu

import (
	"github.com/vecto-ml/vecto/internal/parallel"
)

// Conv2DValid computes the valid 2-D cross-correlation of an (H, W) input
// with a (KH, KW) kernel, writing an (H-KH+1, W-KW+1) output.
func Conv2DValid[T Element](out, in, kernel []T, h, w, kh, kw int, par parallel.Config) {
	oh, ow := h-kh+1, w-kw+1
	parallel.ForRows(oh, ow, func(r0, r1 int) {
		for i := r0; i < r1; i++ {
			oi := out[i*ow : (i+1)*ow]
			for j := range oi {
				var acc T
				for ki := 0; ki < kh; ki++ {
					row := in[(i+ki)*w+j : (i+ki)*w+j+kw]
					krow := kernel[ki*kw : (ki+1)*kw]
					for kj, kv := range krow {
						acc += row[kj] * kv
					}
				}
				oi[j] = acc
			}
		}
	}, par)
}

// Conv2DValidVec is Conv2DValid with the kernel-row loop batched over width
// lanes. Useful when kernels are wide relative to the lane count.
func Conv2DValidVec[T Element](out, in, kernel []T, h, w, kh, kw int, width int, par parallel.Config) {
	oh, ow := h-kh+1, w-kw+1
	parallel.ForRows(oh, ow, func(r0, r1 int) {
		for i := r0; i < r1; i++ {
			oi := out[i*ow : (i+1)*ow]
			for j := range oi {
				var acc T
				for ki := 0; ki < kh; ki++ {
					row := in[(i+ki)*w+j : (i+ki)*w+j+kw]
					krow := kernel[ki*kw : (ki+1)*kw]

					kj := 0
					for ; kj+width <= kw; kj += width {
						for wl := 0; wl < width; wl++ {
							acc += row[kj+wl] * krow[kj+wl]
						}
					}
					for ; kj < kw; kj++ {
						acc += row[kj] * krow[kj]
					}
				}
				oi[j] = acc
			}
		}
	}, par)
}
