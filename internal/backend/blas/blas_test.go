package blas

import (
	"math"
	"math/rand"
	"testing"
)

func TestGemm32KnownValues(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	c := make([]float32, 4)

	Gemm32(c, a, b, 2, 2, 2)

	want := []float32{19, 22, 43, 50}
	for i, w := range want {
		if c[i] != w {
			t.Errorf("c[%d] = %v, want %v", i, c[i], w)
		}
	}
}

func TestGemm64MatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m, k, n := 9, 14, 6
	a := make([]float64, m*k)
	b := make([]float64, k*n)
	for i := range a {
		a[i] = rng.NormFloat64()
	}
	for i := range b {
		b[i] = rng.NormFloat64()
	}

	got := make([]float64, m*n)
	Gemm64(got, a, b, m, k, n)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var want float64
			for l := 0; l < k; l++ {
				want += a[i*k+l] * b[l*n+j]
			}
			if math.Abs(got[i*n+j]-want) > 1e-9 {
				t.Fatalf("c[%d,%d] = %v, want %v", i, j, got[i*n+j], want)
			}
		}
	}
}

func TestGemv32(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6}
	x := []float32{1, 0, -1}
	y := make([]float32, 2)

	Gemv32(y, a, x, 2, 3)

	if y[0] != -2 || y[1] != -2 {
		t.Errorf("gemv = %v, want [-2 -2]", y)
	}
}

func TestDotAndAxpy(t *testing.T) {
	if got := Dot64([]float64{1, 2, 3}, []float64{4, 5, 6}); got != 32 {
		t.Errorf("dot = %v, want 32", got)
	}

	y := []float32{1, 1, 1}
	Axpy32(2, []float32{1, 2, 3}, y)
	want := []float32{3, 5, 7}
	for i, w := range want {
		if y[i] != w {
			t.Errorf("axpy y[%d] = %v, want %v", i, y[i], w)
		}
	}
}
