package search

import (
	"math"
	"testing"
)

func TestNewtonStepScalarSolvesQuadratic(t *testing.T) {
	// f(c) = (c-3)^2, f'(c) = 2(c-3), f''(c) = 2. At c=0: g=-6, h=2.
	c := []float64{0}
	gradient := []float64{-6}
	hessian := []float64{2}
	out, ok := newtonStep(c, gradient, hessian)
	if !ok {
		t.Fatal("expected Newton step to apply")
	}
	if math.Abs(out[0]-3) > 1e-9 {
		t.Fatalf("newton step landed at %v, want 3", out[0])
	}
}

func TestNewtonStepScalarSkipsZeroGradient(t *testing.T) {
	c := []float64{3}
	out, ok := newtonStep(c, []float64{0}, []float64{2})
	if ok {
		t.Fatal("expected step to be skipped at a stationary point")
	}
	if out[0] != 3 {
		t.Fatalf("constants changed despite skipped step: %v", out)
	}
}

func TestNewtonStepScalarSkipsNonFiniteHessian(t *testing.T) {
	c := []float64{1}
	out, ok := newtonStep(c, []float64{-1}, []float64{math.Inf(1)})
	if ok {
		t.Fatal("expected step to be skipped for non-finite hessian")
	}
	if out[0] != 1 {
		t.Fatalf("constants changed despite skipped step: %v", out)
	}
}

func TestNewtonStepReducedSolvesDecoupledQuadratic(t *testing.T) {
	// f(c0,c1) = (c0-1)^2 + (c1-2)^2 -- decoupled, Hessian = diag(2,2).
	c := []float64{0, 0}
	gradient := []float64{-2, -4}
	hessian := []float64{2, 0, 2} // packed lower-triangular: (0,0),(1,0),(1,1)
	out, ok := newtonStep(c, gradient, hessian)
	if !ok {
		t.Fatal("expected Newton step to apply")
	}
	if math.Abs(out[0]-1) > 1e-9 || math.Abs(out[1]-2) > 1e-9 {
		t.Fatalf("newton step landed at %v, want [1,2]", out)
	}
}

func TestNewtonStepReducedRestrictsToNonzeroGradientCoords(t *testing.T) {
	// c1's gradient is exactly zero, so only c0 should move.
	c := []float64{0, 5}
	gradient := []float64{-2, 0}
	hessian := []float64{2, 0, 2}
	out, ok := newtonStep(c, gradient, hessian)
	if !ok {
		t.Fatal("expected Newton step to apply to the reduced coordinate set")
	}
	if math.Abs(out[0]-1) > 1e-9 {
		t.Fatalf("c0 landed at %v, want 1", out[0])
	}
	if out[1] != 5 {
		t.Fatalf("c1 should be left unchanged, got %v", out[1])
	}
}

func TestNewtonStepReducedSkipsIndefiniteHessian(t *testing.T) {
	// Diagonal Hessian [[-1,0],[0,2]] is indefinite (eigenvalues -1, 2);
	// already triangular, so no row pivoting reorders the diagonal.
	c := []float64{0, 0}
	gradient := []float64{-1, -1}
	hessian := []float64{-1, 0, 2}
	out, ok := newtonStep(c, gradient, hessian)
	if ok {
		t.Fatal("expected step to be skipped for an indefinite Hessian")
	}
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("constants changed despite skipped step: %v", out)
	}
}

func TestNewtonStepReducedSkipsSingularHessian(t *testing.T) {
	// Hessian [[1,1],[1,1]] is singular (rank 1).
	c := []float64{0, 0}
	gradient := []float64{-1, -1}
	hessian := []float64{1, 1, 1}
	out, ok := newtonStep(c, gradient, hessian)
	if ok {
		t.Fatal("expected step to be skipped for a singular Hessian")
	}
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("constants changed despite skipped step: %v", out)
	}
}

func TestNewtonStepEmptyConstantsIsNoop(t *testing.T) {
	out, ok := newtonStep(nil, nil, nil)
	if ok {
		t.Fatal("expected no-op for zero constants")
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %v", out)
	}
}
