// Package cpu provides the portable host kernels the evaluation engine
// dispatches to. All kernels take row-major slices.
package cpu

import (
	"github.com/vecto-ml/vecto/internal/parallel"
)

// Element mirrors the container element constraint so the kernels stay free
// of a tensor dependency.
type Element interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// GemmStd computes c = a·b with the naive triple loop in ikj order so the
// inner loop streams both b and c. (M, K) @ (K, N) -> (M, N).
func GemmStd[T Element](c, a, b []T, m, k, n int, par parallel.Config) {
	parallel.ForRows(m, n, func(r0, r1 int) {
		for i := r0; i < r1; i++ {
			ci := c[i*n : (i+1)*n]
			for j := range ci {
				ci[j] = 0
			}
			for l := 0; l < k; l++ {
				av := a[i*k+l]
				bl := b[l*n : (l+1)*n]
				for j, bv := range bl {
					ci[j] += av * bv
				}
			}
		}
	}, par)
}

// GemmVec computes c = a·b with the inner loop batched over width lanes and
// the lane loop unrolled 4x. Accumulation order matches GemmStd.
func GemmVec[T Element](c, a, b []T, m, k, n int, width int, par parallel.Config) {
	parallel.ForRows(m, n, func(r0, r1 int) {
		for i := r0; i < r1; i++ {
			ci := c[i*n : (i+1)*n]
			for j := range ci {
				ci[j] = 0
			}
			for l := 0; l < k; l++ {
				av := a[i*k+l]
				bl := b[l*n : (l+1)*n]

				j := 0
				for ; j+4*width <= n; j += 4 * width {
					for w := 0; w < width; w++ {
						ci[j+w] += av * bl[j+w]
						ci[j+width+w] += av * bl[j+width+w]
						ci[j+2*width+w] += av * bl[j+2*width+w]
						ci[j+3*width+w] += av * bl[j+3*width+w]
					}
				}
				for ; j+width <= n; j += width {
					for w := 0; w < width; w++ {
						ci[j+w] += av * bl[j+w]
					}
				}
				for ; j < n; j++ {
					ci[j] += av * bl[j]
				}
			}
		}
	}, par)
}

// Gemv computes y = A·x for an (M, K) matrix and K-vector.
func Gemv[T Element](y, a, x []T, m, k int, par parallel.Config) {
	parallel.ForRows(m, k, func(r0, r1 int) {
		for i := r0; i < r1; i++ {
			ai := a[i*k : (i+1)*k]
			var acc T
			for l, av := range ai {
				acc += av * x[l]
			}
			y[i] = acc
		}
	}, par)
}

// Dot returns the inner product of two equal-length vectors.
func Dot[T Element](x, y []T) T {
	var acc T
	for i, v := range x {
		acc += v * y[i]
	}
	return acc
}
