// Package dcgp is a small public façade over internal/regression,
// internal/search, and internal/storage, wiring them together the way a
// CLI or an embedding program would rather than requiring every consumer
// to assemble a Problem, a MemeticMOSearch, and a Store by hand.
package dcgp

import (
	"context"
	"errors"
	"fmt"

	"dcgp/internal/kernel"
	"dcgp/internal/regression"
	"dcgp/internal/search"
	"dcgp/internal/storage"
)

const (
	defaultDBPath = "dcgp.db"
)

// Options configures a Client's persistence backend.
type Options struct {
	StoreKind string // "memory" (default) or "sqlite"
	DBPath    string
}

// Client wires a Store to the search/regression core for repeated runs.
type Client struct {
	store storage.Store
}

// RunRequest describes one MemeticMOSearch run over a symbolic regression
// dataset.
type RunRequest struct {
	Dataset regression.Dataset

	NIn, DOut int
	R, C, L   int
	Arity     []int
	Kernels   []string
	NEph      int
	ConstLow  float64
	ConstHigh float64

	PopulationSize int
	Generations    int
	MaxMut         int
	Seed           int64
	Verbosity      int
	Parallel       bool
	Workers        int

	Name      string
	ExtraInfo string
}

// RunSummary is the result of one Run call: the run's identifier, its
// per-generation log, and the final non-dominated front's pretty-printed
// top candidates.
type RunSummary struct {
	RunID          string
	Log            []search.GenerationLog
	TopExpressions []TopExpression
}

// TopExpression is one member of a run's final non-dominated front.
type TopExpression struct {
	Rank       int
	Loss       float64
	Complexity float64
	PrettyForm []string
}

// New builds a Client backed by the requested store kind.
func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = "memory"
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		return nil, err
	}

	return &Client{store: store}, nil
}

// Close releases the Client's store, if its backend supports it.
func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Run builds a SymbolicRegressionProblem and an initial population from
// req, runs MemeticMOSearch.Evolve to completion through a search.Runner,
// and returns the final front.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.PopulationSize <= 0 {
		req.PopulationSize = 50
	}
	if req.Generations <= 0 {
		req.Generations = 100
	}
	if req.MaxMut <= 0 {
		req.MaxMut = 4
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if len(req.Kernels) == 0 {
		return RunSummary{}, errors.New("at least one kernel is required")
	}

	kernels, err := kernel.NewSet(req.Kernels...)
	if err != nil {
		return RunSummary{}, err
	}

	problem, err := regression.New(regression.Config{
		Dataset:     req.Dataset,
		NIn:         req.NIn,
		DOut:        req.DOut,
		R:           req.R,
		C:           req.C,
		L:           req.L,
		Arity:       req.Arity,
		Kernels:     kernels,
		Seed:        req.Seed,
		NEph:        req.NEph,
		ConstBounds: regression.Bounds{Lower: req.ConstLow, Upper: req.ConstHigh},
		Parallel:    req.Parallel,
		Workers:     req.Workers,
		Name:        req.Name,
		ExtraInfo:   req.ExtraInfo,
	})
	if err != nil {
		return RunSummary{}, err
	}

	pop, err := seedPopulation(problem, req.PopulationSize, req.Seed)
	if err != nil {
		return RunSummary{}, err
	}

	s, err := search.New(search.Config{
		MaxMut:    req.MaxMut,
		Gen:       req.Generations,
		Verbosity: req.Verbosity,
		Seed:      req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	runner := search.NewRunner(c.store)
	runID, _, err := runner.Run(ctx, s, problem, pop)
	if err != nil {
		return RunSummary{}, err
	}

	return c.Show(ctx, runID)
}

// Kernels lists every kernel name available to a RunRequest.Kernels entry.
func Kernels() []string {
	return kernel.AllNames()
}

// Show returns a previously persisted run's diagnostics and top
// candidates.
func (c *Client) Show(ctx context.Context, runID string) (RunSummary, error) {
	diagnostics, ok, err := c.store.GetRunDiagnostics(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	if !ok {
		return RunSummary{}, fmt.Errorf("no diagnostics recorded for run %s", runID)
	}
	top, ok, err := c.store.GetTopCandidates(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	if !ok {
		return RunSummary{}, fmt.Errorf("no top candidates recorded for run %s", runID)
	}

	log := make([]search.GenerationLog, len(diagnostics.Entries))
	for i, entry := range diagnostics.Entries {
		log[i] = search.GenerationLog{
			Generation:      entry.Generation,
			Fevals:          entry.Fevals,
			IdealLoss:       entry.IdealLoss,
			NdfSize:         entry.NdfSize,
			NadirComplexity: entry.NadirComplexity,
		}
	}

	out := make([]TopExpression, len(top))
	for i, record := range top {
		var loss, complexity float64
		if len(record.Expression.Fitness) == 2 {
			loss, complexity = record.Expression.Fitness[0], record.Expression.Fitness[1]
		}
		out[i] = TopExpression{
			Rank:       record.Rank,
			Loss:       loss,
			Complexity: complexity,
			PrettyForm: record.PrettyForm,
		}
	}

	return RunSummary{RunID: runID, Log: log, TopExpressions: out}, nil
}

func seedPopulation(problem *regression.Problem, size int, seed int64) (*search.BasicPopulation, error) {
	x := make([][]float64, size)
	f := make([][]float64, size)
	for i := 0; i < size; i++ {
		candidate, err := problem.RandomizeConstants(problem.InitialDecisionVector())
		if err != nil {
			return nil, err
		}
		fitness, err := problem.Fitness(candidate)
		if err != nil {
			return nil, err
		}
		x[i] = candidate
		f[i] = fitness
	}
	return search.NewBasicPopulation(x, f)
}

