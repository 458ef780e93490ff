// Package search implements MemeticMOSearch: the multi-objective memetic
// search loop combining Cartesian-genetic-programming graph mutation with a
// Newton refinement of embedded constants.
package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ErrInvalidArgument is the sentinel wrapped by every malformed-input error
// this package returns.
var ErrInvalidArgument = errors.New("invalid argument")

// Problem is the evolutionary host contract a MemeticMOSearch evolves
// against: a two-objective fitness (loss, complexity), its derivatives with
// respect to the embedded constants, and the decision-vector layout needed
// to bound and mutate it. internal/regression.Problem satisfies this.
type Problem interface {
	Fitness(x []float64) ([]float64, error)
	Gradient(x []float64) ([]float64, error)
	Hessians(x []float64) ([]float64, error)
	GradientSparsity() [][2]int
	HessiansSparsity() [][2]int
	GetBounds() (lower, upper []float64, err error)
	GetNix() int
	GetNobj() int
	Name() string
	ExtraInfo() string
	MutateActive(chromosome []int, k int) ([]int, error)
}

// Population is an ordered sequence of (x, f) pairs, owned by the host and
// only consumed here: the core never defines this type, per §6 of the
// design this package follows. BasicPopulation is a convenience
// implementation for callers that don't already have one.
type Population interface {
	Len() int
	GetX() [][]float64
	GetF() [][]float64
	SetXF(i int, x, f []float64) error
	PushBack(x, f []float64)
}

// GenerationLog is one accumulated record of a generation's search
// statistics, emitted every Verbosity-th generation.
type GenerationLog struct {
	Generation      int
	Fevals          int
	IdealLoss       float64
	NdfSize         int
	NadirComplexity float64
}

// Config configures a MemeticMOSearch.
type Config struct {
	MaxMut    int
	Gen       int
	Verbosity int
	Seed      int64
}

func (cfg Config) validate() error {
	if cfg.MaxMut <= 0 {
		return fmt.Errorf("%w: max_mut must be > 0", ErrInvalidArgument)
	}
	if cfg.Gen <= 0 {
		return fmt.Errorf("%w: gen must be > 0", ErrInvalidArgument)
	}
	if cfg.Verbosity < 0 {
		return fmt.Errorf("%w: verbosity must be >= 0", ErrInvalidArgument)
	}
	return nil
}

// MemeticMOSearch is stateless with respect to population data; it owns
// only the random engine, generation count, maximum active-mutation count,
// verbosity level, and a log of per-generation statistics.
type MemeticMOSearch struct {
	mu sync.Mutex

	maxMut    int
	gen       int
	verbosity int

	rngMu sync.Mutex
	rng   *rand.Rand

	fevals int
	log    []GenerationLog
}

// New constructs a MemeticMOSearch.
func New(cfg Config) (*MemeticMOSearch, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MemeticMOSearch{
		maxMut:    cfg.MaxMut,
		gen:       cfg.Gen,
		verbosity: cfg.Verbosity,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// SetSeed reseeds the search's internal random engine.
func (s *MemeticMOSearch) SetSeed(seed int64) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng = rand.New(rand.NewSource(seed))
}

// SetVerbosity changes the logging cadence; 0 disables logging.
func (s *MemeticMOSearch) SetVerbosity(v int) error {
	if v < 0 {
		return fmt.Errorf("%w: verbosity must be >= 0", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verbosity = v
	return nil
}

// GetLog returns the accumulated per-generation statistics log.
func (s *MemeticMOSearch) GetLog() []GenerationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GenerationLog, len(s.log))
	copy(out, s.log)
	return out
}

// Evolve runs Config.Gen generations of the memetic loop against pop,
// mutating it in place and returning it. ctx is checked once per
// generation for cooperative cancellation, per §5's "should continue"
// predicate.
func (s *MemeticMOSearch) Evolve(ctx context.Context, problem Problem, pop Population) (Population, error) {
	if problem == nil {
		return nil, fmt.Errorf("%w: problem must not be nil", ErrInvalidArgument)
	}
	if pop == nil || pop.Len() < 2 {
		return nil, fmt.Errorf("%w: population must have size >= 2", ErrInvalidArgument)
	}
	if problem.GetNobj() != 2 {
		return nil, fmt.Errorf("%w: problem objective count must be 2, got %d", ErrInvalidArgument, problem.GetNobj())
	}

	n := pop.Len()
	for gen := 0; gen < s.gen; gen++ {
		if err := ctx.Err(); err != nil {
			return pop, err
		}

		parentsX := pop.GetX()
		parentsF := pop.GetF()

		ks := s.assignMutationStrengths(n)

		pool := make([][]float64, 0, 2*n)
		poolF := make([][]float64, 0, 2*n)
		pool = append(pool, parentsX...)
		poolF = append(poolF, parentsF...)

		for i := 0; i < n; i++ {
			candidateX, err := s.mutateAndRefine(problem, parentsX[i], ks[i])
			if err != nil {
				return pop, err
			}
			f, err := problem.Fitness(candidateX)
			s.mu.Lock()
			s.fevals++
			s.mu.Unlock()
			if err != nil || !finiteVector(f) {
				continue
			}
			if containsVector(poolF, f) {
				continue
			}
			pool = append(pool, candidateX)
			poolF = append(poolF, f)
		}

		selected := selectBestN(poolF, n)
		for i, idx := range selected {
			if err := pop.SetXF(i, pool[idx], poolF[idx]); err != nil {
				return pop, err
			}
		}

		if s.verbosity > 0 && gen%s.verbosity == 0 {
			s.recordLog(gen, pop.GetF())
		}
	}

	if s.verbosity > 0 {
		s.recordLog(s.gen-1, pop.GetF())
	}
	return pop, nil
}

// assignMutationStrengths assigns each of n parents a mutation strength in
// {0, ..., maxMut-1} by deterministic shuffle, cycling through the range so
// 0 is guaranteed to appear (permitting pure Newton steps on some
// individuals), per §4.5 step 1.
func (s *MemeticMOSearch) assignMutationStrengths(n int) []int {
	ks := make([]int, n)
	for i := range ks {
		ks[i] = i % s.maxMut
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(n, func(i, j int) { ks[i], ks[j] = ks[j], ks[i] })
	return ks
}

// mutateAndRefine performs §4.5 steps 2-3 for one parent: graph mutation
// via the problem's mutate_active, followed by a guarded Newton refinement
// of the embedded constants.
func (s *MemeticMOSearch) mutateAndRefine(problem Problem, parent []float64, k int) ([]float64, error) {
	nix := problem.GetNix()
	nEph := len(parent) - nix
	if nEph < 0 {
		return nil, fmt.Errorf("%w: decision vector shorter than integer suffix", ErrInvalidArgument)
	}

	chromosome := make([]int, nix)
	for i, v := range parent[nEph:] {
		chromosome[i] = int(v + 0.5)
	}
	mutated, err := problem.MutateActive(chromosome, k)
	if err != nil {
		return nil, err
	}

	candidate := make([]float64, len(parent))
	copy(candidate, parent[:nEph])
	for i, g := range mutated {
		candidate[nEph+i] = float64(g)
	}

	if nEph == 0 {
		return candidate, nil
	}

	gradient, err := problem.Gradient(candidate)
	if err != nil {
		return candidate, nil
	}
	hessian, err := problem.Hessians(candidate)
	if err != nil {
		return candidate, nil
	}
	refined, ok := newtonStep(candidate[:nEph], gradient, hessian)
	if ok {
		copy(candidate[:nEph], refined)
	}
	return candidate, nil
}

// recordLog computes the Pareto front of the current population and
// appends a (gen, fevals, ideal_loss, ndf_size, nadir_complexity) record,
// per §4.5's "Logging" requirement.
func (s *MemeticMOSearch) recordLog(gen int, popF [][]float64) {
	front0 := nonDominatedSort(popF)[0]
	frontF := make([][]float64, len(front0))
	for i, idx := range front0 {
		frontF[i] = popF[idx]
	}
	ideal := idealPoint(frontF)
	nadir := nadirPoint(frontF)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry := GenerationLog{
		Generation: gen,
		Fevals:     s.fevals,
		NdfSize:    len(front0),
	}
	if len(ideal) > 0 {
		entry.IdealLoss = ideal[0]
	}
	if len(nadir) > 1 {
		entry.NadirComplexity = nadir[1]
	}
	s.log = append(s.log, entry)
}

func finiteVector(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}

func containsVector(pool [][]float64, f []float64) bool {
	for _, p := range pool {
		if equalVector(p, f) {
			return true
		}
	}
	return false
}

func equalVector(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
