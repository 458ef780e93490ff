// Package regression implements SymbolicRegressionProblem: a fitness,
// gradient, and Hessian over a reference dataset wrapping an Expression
// whose leading inputs are bound to dataset coordinates and whose trailing
// inputs are bound to embedded real constants, plus the
// mixed-integer decision-vector bookkeeping and fitness cache the memetic
// search consumes.
package regression

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"dcgp/internal/expression"
	"dcgp/internal/kernel"
	"dcgp/internal/taylor"
)

// ErrInvalidArgument is the sentinel wrapped by every malformed-input error
// this package returns.
var ErrInvalidArgument = errors.New("invalid argument")

// Dataset is the reference points/labels pair a problem fits against.
type Dataset struct {
	Points [][]float64
	Labels [][]float64
}

// Bounds is an inclusive finite real interval, used for every embedded
// constant.
type Bounds struct {
	Lower, Upper float64
}

// Config describes a SymbolicRegressionProblem.
type Config struct {
	Dataset       Dataset
	NIn, DOut     int
	R, C, L       int
	Arity         []int
	Kernels       *kernel.Set
	Seed          int64
	NEph          int
	ConstBounds   Bounds
	Parallel      bool
	Workers       int
	CacheCapacity int
	Name          string
	ExtraInfo     string
}

// Problem is SymbolicRegressionProblem: an Expression whose first NIn
// inputs are bound to dataset sample coordinates and whose next NEph
// inputs are bound to embedded real constants, fit against Dataset.
type Problem struct {
	dataset     Dataset
	nIn, dOut   int
	nEph        int
	constBounds Bounds
	parallel    bool
	workers     int
	name        string
	extraInfo   string

	mu   sync.Mutex // guards expr (Set + evaluation must not interleave)
	expr *expression.Expression

	// constants is the problem's own default embedded-constant vector, used
	// as the real prefix of InitialDecisionVector. A caller's decision
	// vector always carries the authoritative constants for a given
	// Fitness/Gradient/Hessians call; this is just a convenience default.
	constants []float64
	rngMu     sync.Mutex
	rng       *rand.Rand

	cache *fitnessCache
}

func (cfg Config) validate() error {
	if len(cfg.Dataset.Points) == 0 {
		return fmt.Errorf("%w: dataset must not be empty", ErrInvalidArgument)
	}
	if len(cfg.Dataset.Points) != len(cfg.Dataset.Labels) {
		return fmt.Errorf("%w: %d points, %d labels", ErrInvalidArgument, len(cfg.Dataset.Points), len(cfg.Dataset.Labels))
	}
	for i, p := range cfg.Dataset.Points {
		if len(p) != cfg.NIn {
			return fmt.Errorf("%w: point %d has length %d, want n_in=%d", ErrInvalidArgument, i, len(p), cfg.NIn)
		}
	}
	for i, l := range cfg.Dataset.Labels {
		if len(l) != cfg.DOut {
			return fmt.Errorf("%w: label %d has length %d, want d_out=%d", ErrInvalidArgument, i, len(l), cfg.DOut)
		}
	}
	if cfg.R == 0 {
		return fmt.Errorf("%w: r must be > 0", ErrInvalidArgument)
	}
	if cfg.C == 0 {
		return fmt.Errorf("%w: c must be > 0", ErrInvalidArgument)
	}
	if cfg.L == 0 {
		return fmt.Errorf("%w: l must be > 0", ErrInvalidArgument)
	}
	if cfg.Kernels == nil || cfg.Kernels.Len() == 0 {
		return fmt.Errorf("%w: kernel set must not be empty", ErrInvalidArgument)
	}
	if cfg.NEph < 0 {
		return fmt.Errorf("%w: n_eph must be >= 0", ErrInvalidArgument)
	}
	if cfg.NEph > 0 && cfg.ConstBounds.Lower >= cfg.ConstBounds.Upper {
		return fmt.Errorf("%w: const bounds must satisfy lower < upper", ErrInvalidArgument)
	}
	return nil
}

// New constructs a Problem. Embedded constants default to the midpoint of
// ConstBounds; call RandomizeConstants to draw a fresh initial value.
func New(cfg Config) (*Problem, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e, err := expression.New(expression.Config{
		N: cfg.NIn + cfg.NEph, M: cfg.DOut, R: cfg.R, C: cfg.C, L: cfg.L,
		Arity: cfg.Arity, Kernels: cfg.Kernels, Seed: cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = 256
	}
	p := &Problem{
		dataset:     cfg.Dataset,
		nIn:         cfg.NIn,
		dOut:        cfg.DOut,
		nEph:        cfg.NEph,
		constBounds: cfg.ConstBounds,
		parallel:    cfg.Parallel,
		workers:     workers,
		name:        cfg.Name,
		extraInfo:   cfg.ExtraInfo,
		expr:        e,
		cache:       newFitnessCache(capacity),
		constants:   make([]float64, cfg.NEph),
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}
	mid := (cfg.ConstBounds.Lower + cfg.ConstBounds.Upper) / 2
	for i := range p.constants {
		p.constants[i] = mid
	}
	return p, nil
}

// Name returns the problem's display name.
func (p *Problem) Name() string { return p.name }

// ExtraInfo returns free-form problem metadata.
func (p *Problem) ExtraInfo() string { return p.extraInfo }

// InitialDecisionVector returns a decision vector built from the Problem's
// default embedded constants (the midpoint of ConstBounds) and the random
// chromosome New drew at construction — a convenient starting point for a
// host that hasn't yet run RandomizeConstants.
func (p *Problem) InitialDecisionVector() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	chromosome := p.expr.Chromosome()
	out := make([]float64, p.nEph+len(chromosome))
	copy(out, p.constants)
	for i, g := range chromosome {
		out[p.nEph+i] = float64(g)
	}
	return out
}

// GetNix returns the length of the decision vector's integer suffix (the
// Expression's chromosome length).
func (p *Problem) GetNix() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expr.ChromosomeLength()
}

// GetNobj returns the problem's objective count: loss and active-node
// complexity.
func (p *Problem) GetNobj() int { return 2 }

// GetBounds returns the lower and upper bound of every decision-vector
// coordinate: NEph real bounds followed by one integer gene bound per
// chromosome position.
func (p *Problem) GetBounds() (lower, upper []float64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.nEph + p.expr.ChromosomeLength()
	lower = make([]float64, n)
	upper = make([]float64, n)
	for i := 0; i < p.nEph; i++ {
		lower[i] = p.constBounds.Lower
		upper[i] = p.constBounds.Upper
	}
	for pos := 0; pos < p.expr.ChromosomeLength(); pos++ {
		b, err := p.expr.GeneBound(pos)
		if err != nil {
			return nil, nil, err
		}
		lower[p.nEph+pos] = float64(b.Lower)
		upper[p.nEph+pos] = float64(b.Upper)
	}
	return lower, upper, nil
}

// splitDecisionVector validates and splits x into its real constant prefix
// and integer chromosome suffix.
func (p *Problem) splitDecisionVector(x []float64) (consts []float64, chromosome []int, err error) {
	want := p.nEph + p.expr.ChromosomeLength()
	if len(x) != want {
		return nil, nil, fmt.Errorf("%w: decision vector has length %d, want %d", ErrInvalidArgument, len(x), want)
	}
	consts = append([]float64(nil), x[:p.nEph]...)
	chromosome = make([]int, p.expr.ChromosomeLength())
	for i, v := range x[p.nEph:] {
		chromosome[i] = int(v + 0.5)
	}
	return consts, chromosome, nil
}

func integerSuffixKey(chromosome []int) string {
	buf := make([]byte, 0, len(chromosome)*4)
	for i, g := range chromosome {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = fmt.Appendf(buf, "%d", g)
	}
	return string(buf)
}

// Fitness returns the two-objective fitness vector [loss, complexity] for
// decision vector x, where loss is the mean summed-squared-error over the
// dataset and complexity is the expression's active-node count.
func (p *Problem) Fitness(x []float64) ([]float64, error) {
	f, _, _, err := p.evaluate(x)
	return f, err
}

// Gradient returns the dense gradient of the loss with respect to the
// NEph embedded constants.
func (p *Problem) Gradient(x []float64) ([]float64, error) {
	_, g, _, err := p.evaluate(x)
	return g, err
}

// Hessians returns the lower-triangular Hessian coefficients of the loss
// with respect to the embedded constants, in the order reported by
// HessiansSparsity.
func (p *Problem) Hessians(x []float64) ([]float64, error) {
	_, _, h, err := p.evaluate(x)
	return h, err
}

// MutateActive sets the expression's chromosome to chromosome, applies
// mutate_active(k) to it, and returns the resulting chromosome. Used by
// MemeticMOSearch's graph-mutation step, which owns the decision vector's
// numeric layout but not the expression's gene-bound machinery — only the
// Problem knows the graph shape that bounds a valid mutation.
func (p *Problem) MutateActive(chromosome []int, k int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expr.Set(chromosome); err != nil {
		return nil, err
	}
	if err := p.expr.MutateActive(k); err != nil {
		return nil, err
	}
	return p.expr.Chromosome(), nil
}

// GradientSparsity reports the dense index set the gradient is defined
// over: every embedded-constant coordinate.
func (p *Problem) GradientSparsity() [][2]int {
	out := make([][2]int, p.nEph)
	for i := range out {
		out[i] = [2]int{0, i}
	}
	return out
}

// HessiansSparsity reports the lower-triangular (i, j) coordinate pairs the
// Hessian entries correspond to, 0 <= j <= i < NEph.
func (p *Problem) HessiansSparsity() [][2]int {
	out := make([][2]int, 0, p.nEph*(p.nEph+1)/2)
	for i := 0; i < p.nEph; i++ {
		for j := 0; j <= i; j++ {
			out = append(out, [2]int{i, j})
		}
	}
	return out
}

// evaluate computes (and caches) the fitness, gradient, and Hessian for x
// together, keyed by the integer suffix of x: per §4.4's cache contract,
// a fresh computation overwrites whatever was cached for that topology.
func (p *Problem) evaluate(x []float64) (fitness, gradient, hessian []float64, err error) {
	consts, chromosome, err := p.splitDecisionVector(x)
	if err != nil {
		return nil, nil, nil, err
	}
	key := integerSuffixKey(chromosome)
	if cached, ok := p.cache.get(key, consts); ok {
		return cached.fitness, cached.gradient, cached.hessian, nil
	}

	p.mu.Lock()
	if err := p.expr.Set(chromosome); err != nil {
		p.mu.Unlock()
		return nil, nil, nil, err
	}
	loss, err := p.sumSquaredError(consts)
	if err != nil {
		p.mu.Unlock()
		return nil, nil, nil, err
	}
	complexity := float64(p.expr.NumActiveNodes())
	gradient, hessian, err = p.taylorGradientHessian(consts)
	p.mu.Unlock()
	if err != nil {
		return nil, nil, nil, err
	}

	fitness = []float64{loss, complexity}
	p.cache.put(key, consts, cacheEntry{fitness: fitness, gradient: gradient, hessian: hessian})
	return fitness, gradient, hessian, nil
}

// sumSquaredError evaluates the expression over every dataset sample with
// the given constants bound to the trailing NEph inputs, returning the
// squared error summed across outputs and averaged across samples.
// Expression evaluation is read-only, so this is safe to run concurrently
// across samples; results are reduced in a fixed (sample-index) order so
// sequential and parallel runs are bit-identical, per §5.
func (p *Problem) sumSquaredError(consts []float64) (float64, error) {
	n := len(p.dataset.Points)
	perSample := make([]float64, n)
	errs := make([]error, n)

	evalOne := func(i int) {
		point := make([]float64, p.nIn+p.nEph)
		copy(point, p.dataset.Points[i])
		copy(point[p.nIn:], consts)
		out, err := p.expr.Call(point)
		if err != nil {
			errs[i] = err
			return
		}
		sum := 0.0
		for k, v := range out {
			d := v - p.dataset.Labels[i][k]
			sum += d * d
		}
		perSample[i] = sum
	}

	if !p.parallel || n == 1 {
		for i := 0; i < n; i++ {
			evalOne(i)
		}
	} else {
		workers := p.workers
		if workers > n {
			workers = n
		}
		jobs := make(chan int)
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for i := range jobs {
					evalOne(i)
				}
			}()
		}
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return 0, err
		}
	}
	total := 0.0
	for _, v := range perSample {
		total += v
	}
	return total / float64(n), nil
}

// taylorGradientHessian computes the gradient and lower-triangular Hessian
// of sumSquaredError with respect to consts, by lifting the constants to
// degree-2 Taylor variables and evaluating the expression with the Taylor
// element type (the same mechanism as a SymbolicRegressionProblem's
// automatic differentiation, never mixed with WeightedExpression's reverse
// mode — see the taylor package and §9's "derivatives without custom
// autodiff" note).
func (p *Problem) taylorGradientHessian(consts []float64) (gradient, hessian []float64, err error) {
	if p.nEph == 0 {
		return []float64{}, []float64{}, nil
	}
	n := len(p.dataset.Points)
	accGrad := make([]float64, p.nEph)
	accHess := make([][]float64, p.nEph)
	for i := range accHess {
		accHess[i] = make([]float64, p.nEph)
	}

	for i := 0; i < n; i++ {
		point := make([]taylor.Series, p.nIn+p.nEph)
		for j := 0; j < p.nIn; j++ {
			point[j] = taylor.Constant(p.nEph, p.dataset.Points[i][j])
		}
		for j := 0; j < p.nEph; j++ {
			point[p.nIn+j] = taylor.Variable(p.nEph, j, consts[j])
		}
		out, err := p.expr.CallTaylor(point)
		if err != nil {
			return nil, nil, err
		}
		var sampleLoss taylor.Series = taylor.Constant(p.nEph, 0)
		for k, o := range out {
			d := o.Sub(taylor.Constant(p.nEph, p.dataset.Labels[i][k]))
			sampleLoss = sampleLoss.Add(d.Mul(d))
		}
		for a := 0; a < p.nEph; a++ {
			mi := make([]int, p.nEph)
			mi[a] = 1
			accGrad[a] += sampleLoss.GetDerivative(mi)
			for b := 0; b <= a; b++ {
				mi2 := make([]int, p.nEph)
				if a == b {
					mi2[a] = 2
				} else {
					mi2[a] = 1
					mi2[b] = 1
				}
				accHess[a][b] += sampleLoss.GetDerivative(mi2)
			}
		}
	}

	gradient = make([]float64, p.nEph)
	for i := range gradient {
		gradient[i] = accGrad[i] / float64(n)
	}
	hessian = make([]float64, 0, p.nEph*(p.nEph+1)/2)
	for a := 0; a < p.nEph; a++ {
		for b := 0; b <= a; b++ {
			hessian = append(hessian, accHess[a][b]/float64(n))
		}
	}
	return gradient, hessian, nil
}

