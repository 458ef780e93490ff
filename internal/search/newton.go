package search

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// newtonStep attempts a single Newton refinement of embedded constants c
// given the full gradient and the packed lower-triangular Hessian (ordered
// as Problem.HessiansSparsity reports it: pairs (i, j) with j <= i, i
// ascending). It restricts to the reduced coordinate set S of constants
// with a non-zero gradient entry and applies the step only if all four
// guards of §4.5 step 3 pass, returning (c, false) unchanged otherwise.
func newtonStep(c, gradient, hessianPacked []float64) ([]float64, bool) {
	n := len(c)
	if n == 0 || len(gradient) != n {
		return c, false
	}
	if n == 1 {
		return newtonStepScalar(c, gradient[0], hessianPacked)
	}
	return newtonStepReduced(c, gradient, hessianPacked)
}

func newtonStepScalar(c []float64, g float64, hessianPacked []float64) ([]float64, bool) {
	if len(hessianPacked) == 0 {
		return c, false
	}
	h := hessianPacked[0]
	if g == 0 || h == 0 || !isFinite(g) || !isFinite(h) {
		return c, false
	}
	out := append([]float64(nil), c...)
	out[0] = c[0] - g/h
	return out, true
}

// newtonStepReduced implements the n_e > 1 branch: it builds the reduced
// gradient/Hessian over the constants with a non-zero gradient coordinate,
// factorizes the reduced Hessian with gonum's partial-pivot LU (the closest
// analog to the "full-pivot LU factorization" named by the spec available
// anywhere in the retrieved pack — see DESIGN.md), and checks invertibility,
// positive-semidefiniteness via the LU factor's U diagonal (Sylvester's
// inertia), and that the inverse is entrywise finite before applying the
// step.
func newtonStepReduced(c, gradient, hessianPacked []float64) ([]float64, bool) {
	n := len(c)
	dense := unpackLowerTriangular(n, hessianPacked)

	s := make([]int, 0, n)
	for i, g := range gradient {
		if g != 0 {
			if !isFinite(g) {
				return c, false
			}
			s = append(s, i)
		}
	}
	if len(s) == 0 {
		return c, false
	}

	k := len(s)
	hS := mat.NewDense(k, k, nil)
	gS := mat.NewVecDense(k, nil)
	for i, ri := range s {
		gS.SetVec(i, gradient[ri])
		for j, cj := range s {
			hS.Set(i, j, dense[ri][cj])
		}
	}

	var lu mat.LU
	lu.Factorize(hS)
	if lu.Det() == 0 {
		return c, false
	}

	var u mat.TriDense
	lu.UTo(&u)
	for i := 0; i < k; i++ {
		if u.At(i, i) < 0 {
			return c, false
		}
	}

	var hInv mat.Dense
	if err := hInv.Inverse(hS); err != nil {
		return c, false
	}
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if !isFinite(hInv.At(i, j)) {
				return c, false
			}
		}
	}

	var step mat.VecDense
	step.MulVec(&hInv, gS)

	out := append([]float64(nil), c...)
	for i, idx := range s {
		out[idx] = c[idx] - step.AtVec(i)
	}
	return out, true
}

// unpackLowerTriangular expands a packed lower-triangular coefficient
// vector (ordered (0,0),(1,0),(1,1),(2,0),...) into a dense symmetric
// n×n matrix.
func unpackLowerTriangular(n int, packed []float64) [][]float64 {
	dense := make([][]float64, n)
	for i := range dense {
		dense[i] = make([]float64, n)
	}
	idx := 0
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if idx >= len(packed) {
				return dense
			}
			dense[i][j] = packed[idx]
			dense[j][i] = packed[idx]
			idx++
		}
	}
	return dense
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
