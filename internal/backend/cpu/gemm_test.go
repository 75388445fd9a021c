package cpu

import (
	"math"
	"math/rand"
	"testing"

	"github.com/vecto-ml/vecto/internal/parallel"
)

var seq = parallel.Config{Enabled: false}

func TestGemmStdKnownValues(t *testing.T) {
	// [[1,2],[3,4]] @ [[5,6],[7,8]] = [[19,22],[43,50]]
	a := []float64{1, 2, 3, 4}
	b := []float64{5, 6, 7, 8}
	c := make([]float64, 4)

	GemmStd(c, a, b, 2, 2, 2, seq)

	want := []float64{19, 22, 43, 50}
	for i, w := range want {
		if c[i] != w {
			t.Errorf("c[%d] = %v, want %v", i, c[i], w)
		}
	}
}

func TestGemmVecMatchesStd(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, dims := range [][3]int{{1, 1, 1}, {3, 5, 7}, {16, 16, 16}, {13, 29, 31}} {
		m, k, n := dims[0], dims[1], dims[2]
		a := randSlice(rng, m*k)
		b := randSlice(rng, k*n)
		std := make([]float32, m*n)
		vec := make([]float32, m*n)

		GemmStd(std, a, b, m, k, n, seq)
		for _, width := range []int{4, 8} {
			GemmVec(vec, a, b, m, k, n, width, seq)
			for i := range std {
				if math.Abs(float64(std[i]-vec[i])) > 1e-4 {
					t.Fatalf("dims %v width %d: vec[%d]=%v std=%v", dims, width, i, vec[i], std[i])
				}
			}
		}
	}
}

func TestGemmParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m, k, n := 37, 11, 23
	a := randSlice(rng, m*k)
	b := randSlice(rng, k*n)
	want := make([]float32, m*n)
	got := make([]float32, m*n)

	GemmStd(want, a, b, m, k, n, seq)
	GemmStd(got, a, b, m, k, n, parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8})

	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("parallel gemm diverged at %d: %v vs %v", i, got[i], want[i])
		}
	}
}

func TestGemvKnownValues(t *testing.T) {
	// [[1,2,3],[4,5,6]] @ [1,1,1] = [6,15]
	a := []int32{1, 2, 3, 4, 5, 6}
	x := []int32{1, 1, 1}
	y := make([]int32, 2)

	Gemv(y, a, x, 2, 3, seq)

	if y[0] != 6 || y[1] != 15 {
		t.Errorf("gemv = %v, want [6 15]", y)
	}
}

func TestDot(t *testing.T) {
	if got := Dot([]float64{1, 2, 3}, []float64{4, 5, 6}); got != 32 {
		t.Errorf("dot = %v, want 32", got)
	}
}

func randSlice(rng *rand.Rand, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}
