package regression

import (
	"math"
	"testing"

	"dcgp/internal/kernel"
)

func baseConfig(t *testing.T) Config {
	t.Helper()
	set, err := kernel.NewSet("sum", "mul")
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return Config{
		Dataset: Dataset{
			Points: [][]float64{{1}, {2}, {3}},
			Labels: [][]float64{{2}, {4}, {6}},
		},
		NIn: 1, DOut: 1,
		R: 2, C: 2, L: 2, Arity: []int{2, 2},
		Kernels: set, Seed: 1,
		NEph:        1,
		ConstBounds: Bounds{Lower: -5, Upper: 5},
	}
}

func TestNewRejectsRaggedDataset(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Dataset.Points[1] = []float64{2, 3}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for ragged point row")
	}
}

func TestNewRejectsMismatchedCounts(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Dataset.Labels = cfg.Dataset.Labels[:2]
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for mismatched point/label counts")
	}
}

func TestNewRejectsEmptyDataset(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Dataset = Dataset{}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestNewRejectsZeroShapeParams(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.R = 0 },
		func(c *Config) { c.C = 0 },
		func(c *Config) { c.L = 0 },
	} {
		cfg := baseConfig(t)
		mutate(&cfg)
		if _, err := New(cfg); err == nil {
			t.Fatal("expected error for zero shape parameter")
		}
	}
}

func TestNewRejectsEmptyKernelSet(t *testing.T) {
	cfg := baseConfig(t)
	empty, err := kernel.NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	cfg.Kernels = empty
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for empty kernel set")
	}
}

func TestFitnessReturnsLossAndComplexity(t *testing.T) {
	cfg := baseConfig(t)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := p.InitialDecisionVector()
	f, err := p.Fitness(x)
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	if len(f) != 2 {
		t.Fatalf("Fitness returned %d objectives, want 2", len(f))
	}
	if f[0] < 0 {
		t.Fatalf("loss must be non-negative, got %v", f[0])
	}
	if f[1] < 0 {
		t.Fatalf("complexity must be non-negative, got %v", f[1])
	}
}

func TestFitnessRejectsWrongLengthVector(t *testing.T) {
	cfg := baseConfig(t)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Fitness([]float64{1, 2}); err == nil {
		t.Fatal("expected error for wrong-length decision vector")
	}
}

func TestFitnessMatchesInParallelAndSequentialMode(t *testing.T) {
	set, err := kernel.NewSet("sum", "mul")
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	points := make([][]float64, 50)
	labels := make([][]float64, 50)
	for i := range points {
		v := float64(i) * 0.1
		points[i] = []float64{v}
		labels[i] = []float64{2 * v}
	}
	cfgSeq := Config{
		Dataset: Dataset{Points: points, Labels: labels},
		NIn: 1, DOut: 1, R: 2, C: 2, L: 2, Arity: []int{2, 2},
		Kernels: set, Seed: 4, NEph: 1, ConstBounds: Bounds{Lower: -5, Upper: 5},
		Parallel: false,
	}
	cfgPar := cfgSeq
	cfgPar.Parallel = true
	cfgPar.Workers = 4

	pSeq, err := New(cfgSeq)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pPar, err := New(cfgPar)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := pSeq.InitialDecisionVector()
	fSeq, err := pSeq.Fitness(x)
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	fPar, err := pPar.Fitness(x)
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	if fSeq[0] != fPar[0] {
		t.Fatalf("sequential loss %v != parallel loss %v", fSeq[0], fPar[0])
	}
}

func TestGradientAgreesWithCentralDifference(t *testing.T) {
	cfg := baseConfig(t)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := p.InitialDecisionVector()
	grad, err := p.Gradient(x)
	if err != nil {
		t.Fatalf("Gradient: %v", err)
	}
	const h = 1e-6
	for i := 0; i < cfg.NEph; i++ {
		xp := append([]float64(nil), x...)
		xp[i] += h
		fp, err := p.Fitness(xp)
		if err != nil {
			t.Fatalf("Fitness: %v", err)
		}
		xm := append([]float64(nil), x...)
		xm[i] -= h
		fm, err := p.Fitness(xm)
		if err != nil {
			t.Fatalf("Fitness: %v", err)
		}
		numeric := (fp[0] - fm[0]) / (2 * h)
		if math.Abs(numeric) < 1e-9 && math.Abs(grad[i]) < 1e-6 {
			continue
		}
		relErr := math.Abs(grad[i]-numeric) / math.Max(math.Abs(numeric), 1e-12)
		if relErr > 0.2 {
			t.Errorf("constant %d: analytic grad %.8f, numeric %.8f, rel err %.4f", i, grad[i], numeric, relErr)
		}
	}
}

func TestHessiansSparsityIsLowerTriangular(t *testing.T) {
	cfg := baseConfig(t)
	cfg.NEph = 3
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sparsity := p.HessiansSparsity()
	for _, pair := range sparsity {
		i, j := pair[0], pair[1]
		if j > i {
			t.Fatalf("sparsity pair (%d,%d) is not lower-triangular", i, j)
		}
	}
	if got, want := len(sparsity), 3*4/2; got != want {
		t.Fatalf("sparsity has %d entries, want %d", got, want)
	}
}

func TestCacheHitsReturnIdenticalResultWithoutRecompute(t *testing.T) {
	cfg := baseConfig(t)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := p.InitialDecisionVector()
	f1, err := p.Fitness(x)
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	f2, err := p.Fitness(x)
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	if f1[0] != f2[0] || f1[1] != f2[1] {
		t.Fatalf("cached fitness differs: %v vs %v", f1, f2)
	}
}

func TestRandomizeConstantsStaysWithinBounds(t *testing.T) {
	cfg := baseConfig(t)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := p.InitialDecisionVector()
	for trial := 0; trial < 20; trial++ {
		x, err = p.RandomizeConstants(x)
		if err != nil {
			t.Fatalf("RandomizeConstants: %v", err)
		}
		for i := 0; i < cfg.NEph; i++ {
			if x[i] < cfg.ConstBounds.Lower || x[i] > cfg.ConstBounds.Upper {
				t.Fatalf("constant %d = %v escaped bounds [%v,%v]", i, x[i], cfg.ConstBounds.Lower, cfg.ConstBounds.Upper)
			}
		}
	}
}

func TestPrettyPrintProducesNonEmptyForm(t *testing.T) {
	cfg := baseConfig(t)
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := p.InitialDecisionVector()
	out, err := p.PrettyPrint(x)
	if err != nil {
		t.Fatalf("PrettyPrint: %v", err)
	}
	if len(out) != 1 || out[0] == "" {
		t.Fatalf("PrettyPrint = %v, want one non-empty string", out)
	}
	if _, err := p.Prettier(x); err != nil {
		t.Fatalf("Prettier: %v", err)
	}
}
