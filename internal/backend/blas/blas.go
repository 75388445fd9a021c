// Package blas wraps the gonum BLAS bindings behind the slice shapes the
// rest of the engine uses. Only float32 and float64 have BLAS routines;
// selection never picks this path for integer elements.
package blas

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// Gemm32 computes c = a·b for row-major float32 matrices.
func Gemm32(c, a, b []float32, m, k, n int) {
	ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a}
	gb := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: c}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, ga, gb, 0, gc)
}

// Gemm64 computes c = a·b for row-major float64 matrices.
func Gemm64(c, a, b []float64, m, k, n int) {
	ga := blas64.General{Rows: m, Cols: k, Stride: k, Data: a}
	gb := blas64.General{Rows: k, Cols: n, Stride: n, Data: b}
	gc := blas64.General{Rows: m, Cols: n, Stride: n, Data: c}
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1, ga, gb, 0, gc)
}

// Gemv32 computes y = A·x for a row-major (m × k) float32 matrix.
func Gemv32(y, a, x []float32, m, k int) {
	ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a}
	vx := blas32.Vector{N: k, Inc: 1, Data: x}
	vy := blas32.Vector{N: m, Inc: 1, Data: y}
	blas32.Gemv(blas.NoTrans, 1, ga, vx, 0, vy)
}

// Gemv64 computes y = A·x for a row-major (m × k) float64 matrix.
func Gemv64(y, a, x []float64, m, k int) {
	ga := blas64.General{Rows: m, Cols: k, Stride: k, Data: a}
	vx := blas64.Vector{N: k, Inc: 1, Data: x}
	vy := blas64.Vector{N: m, Inc: 1, Data: y}
	blas64.Gemv(blas.NoTrans, 1, ga, vx, 0, vy)
}

// Dot32 returns the inner product of two float32 vectors.
func Dot32(x, y []float32) float32 {
	return blas32.Dot(blas32.Vector{N: len(x), Inc: 1, Data: x},
		blas32.Vector{N: len(y), Inc: 1, Data: y})
}

// Dot64 returns the inner product of two float64 vectors.
func Dot64(x, y []float64) float64 {
	return blas64.Dot(blas64.Vector{N: len(x), Inc: 1, Data: x},
		blas64.Vector{N: len(y), Inc: 1, Data: y})
}

// Axpy32 computes y += alpha*x for float32 vectors.
func Axpy32(alpha float32, x, y []float32) {
	blas32.Axpy(alpha, blas32.Vector{N: len(x), Inc: 1, Data: x},
		blas32.Vector{N: len(y), Inc: 1, Data: y})
}

// Axpy64 computes y += alpha*x for float64 vectors.
func Axpy64(alpha float64, x, y []float64) {
	blas64.Axpy(alpha, blas64.Vector{N: len(x), Inc: 1, Data: x},
		blas64.Vector{N: len(y), Inc: 1, Data: y})
}
