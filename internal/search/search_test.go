package search

import (
	"context"
	"math"
	"testing"

	"dcgp/internal/kernel"
	"dcgp/internal/regression"
)

func newTestProblem(t *testing.T, seed int64) *regression.Problem {
	t.Helper()
	set, err := kernel.NewSet("sum", "diff", "mul", "div")
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	n := 12
	points := make([][]float64, n)
	labels := make([][]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i) * 0.2
		points[i] = []float64{v}
		labels[i] = []float64{v*v + 1}
	}
	p, err := regression.New(regression.Config{
		Dataset: regression.Dataset{Points: points, Labels: labels},
		NIn:     1, DOut: 1,
		R: 3, C: 4, L: 4, Arity: []int{2, 2, 2, 2},
		Kernels: set, Seed: seed,
		NEph:        1,
		ConstBounds: regression.Bounds{Lower: -5, Upper: 5},
	})
	if err != nil {
		t.Fatalf("regression.New: %v", err)
	}
	return p
}

func newTestPopulation(t *testing.T, p *regression.Problem, size int, seed int64) *BasicPopulation {
	t.Helper()
	xs := make([][]float64, size)
	fs := make([][]float64, size)
	for i := 0; i < size; i++ {
		x, err := p.RandomizeConstants(p.InitialDecisionVector())
		if err != nil {
			t.Fatalf("RandomizeConstants: %v", err)
		}
		f, err := p.Fitness(x)
		if err != nil {
			t.Fatalf("Fitness: %v", err)
		}
		xs[i] = x
		fs[i] = f
	}
	pop, err := NewBasicPopulation(xs, fs)
	if err != nil {
		t.Fatalf("NewBasicPopulation: %v", err)
	}
	return pop
}

func TestNewRejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{MaxMut: 0, Gen: 10},
		{MaxMut: 2, Gen: 0},
		{MaxMut: 2, Gen: 10, Verbosity: -1},
	} {
		if _, err := New(cfg); err == nil {
			t.Errorf("expected error for config %+v", cfg)
		}
	}
}

func TestEvolveRejectsUndersizedPopulation(t *testing.T) {
	p := newTestProblem(t, 1)
	s, err := New(Config{MaxMut: 2, Gen: 5, Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := newTestPopulation(t, p, 1, 1)
	if _, err := s.Evolve(context.Background(), p, pop); err == nil {
		t.Fatal("expected error for population size < 2")
	}
}

func TestEvolvePreservesPopulationSize(t *testing.T) {
	p := newTestProblem(t, 2)
	s, err := New(Config{MaxMut: 2, Gen: 5, Seed: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	const n = 8
	pop := newTestPopulation(t, p, n, 2)
	out, err := s.Evolve(context.Background(), p, pop)
	if err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	if out.Len() != n {
		t.Fatalf("population size changed: got %d, want %d", out.Len(), n)
	}
	for _, f := range out.GetF() {
		for _, v := range f {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite fitness survived selection: %v", f)
			}
		}
	}
}

func TestEvolveRespectsContextCancellation(t *testing.T) {
	p := newTestProblem(t, 3)
	s, err := New(Config{MaxMut: 2, Gen: 1000, Seed: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := newTestPopulation(t, p, 6, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Evolve(ctx, p, pop); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestEvolveIdealLossIsNonIncreasing(t *testing.T) {
	p := newTestProblem(t, 4)
	s, err := New(Config{MaxMut: 2, Gen: 25, Seed: 4, Verbosity: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := newTestPopulation(t, p, 10, 4)
	if _, err := s.Evolve(context.Background(), p, pop); err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	log := s.GetLog()
	if len(log) < 2 {
		t.Fatalf("expected a log entry per generation, got %d", len(log))
	}
	for i := 1; i < len(log); i++ {
		if log[i].IdealLoss > log[i-1].IdealLoss+1e-9 {
			t.Errorf("ideal loss increased from generation %d to %d: %v -> %v",
				log[i-1].Generation, log[i].Generation, log[i-1].IdealLoss, log[i].IdealLoss)
		}
	}
}

func TestGetLogEmptyWhenVerbosityZero(t *testing.T) {
	p := newTestProblem(t, 5)
	s, err := New(Config{MaxMut: 2, Gen: 5, Seed: 5, Verbosity: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := newTestPopulation(t, p, 6, 5)
	if _, err := s.Evolve(context.Background(), p, pop); err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	if log := s.GetLog(); len(log) != 0 {
		t.Fatalf("expected no log entries with verbosity=0, got %d", len(log))
	}
}
