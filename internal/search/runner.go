package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"dcgp/internal/model"
	"dcgp/internal/regression"
	"dcgp/internal/storage"
)

// Runner wraps a MemeticMOSearch evolution with run identity and
// persistence: every call to Run is stamped with a fresh UUID, its
// per-generation log and final top candidates are written to a Store, and
// the regression.Problem's fitness cache can be warm-started from a prior
// run over the same problem name.
type Runner struct {
	store storage.Store
}

// NewRunner builds a Runner backed by store. A nil store is valid: Run
// still stamps and returns a run ID, it just has nothing to persist to.
func NewRunner(store storage.Store) *Runner {
	return &Runner{store: store}
}

// defaultTopCount bounds how many members of the final non-dominated front Run
// persists as TopCandidateRecords, in ascending-loss order.
const defaultTopCount = 10

// Run executes one MemeticMOSearch.Evolve call, warm-starting problem's
// fitness cache from the store (if one is configured and has entries for
// problem.Name()), then persisting the resulting generation log and top
// candidates under a freshly minted run ID.
func (r *Runner) Run(ctx context.Context, s *MemeticMOSearch, problem *regression.Problem, pop Population) (runID string, result Population, err error) {
	if s == nil {
		return "", nil, fmt.Errorf("%w: search must not be nil", ErrInvalidArgument)
	}
	if problem == nil {
		return "", nil, fmt.Errorf("%w: problem must not be nil", ErrInvalidArgument)
	}

	runID = uuid.NewString()

	if r.store != nil {
		entries, ok, loadErr := r.store.GetCacheEntries(ctx, problem.Name())
		if loadErr != nil {
			return "", nil, loadErr
		}
		if ok {
			problem.ImportCache(toSnapshotEntries(entries))
		}
	}

	result, err = s.Evolve(ctx, problem, pop)
	if err != nil {
		return "", nil, err
	}

	if r.store == nil {
		return runID, result, nil
	}

	diagnostics := model.RunDiagnostics{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
		RunID:           runID,
		ProblemName:     problem.Name(),
		Entries:         toLogEntries(s.GetLog()),
	}
	if err := r.store.SaveRunDiagnostics(ctx, runID, diagnostics); err != nil {
		return "", nil, err
	}

	top, err := buildTopCandidates(problem, result, runID, defaultTopCount)
	if err != nil {
		return "", nil, err
	}
	if err := r.store.SaveTopCandidates(ctx, runID, top); err != nil {
		return "", nil, err
	}

	cacheRecords := toCacheEntryRecords(problem.ExportCache())
	if err := r.store.SaveCacheEntries(ctx, problem.Name(), cacheRecords); err != nil {
		return "", nil, err
	}

	return runID, result, nil
}

func toLogEntries(log []GenerationLog) []model.LogEntry {
	out := make([]model.LogEntry, len(log))
	for i, entry := range log {
		out[i] = model.LogEntry{
			Generation:      entry.Generation,
			Fevals:          entry.Fevals,
			IdealLoss:       entry.IdealLoss,
			NdfSize:         entry.NdfSize,
			NadirComplexity: entry.NadirComplexity,
		}
	}
	return out
}

func buildTopCandidates(problem *regression.Problem, pop Population, runID string, limit int) ([]model.TopCandidateRecord, error) {
	x := pop.GetX()
	f := pop.GetF()
	fronts := nonDominatedSort(f)
	if len(fronts) == 0 {
		return nil, nil
	}

	front := fronts[0]
	ordered := append([]int(nil), front...)
	sort.Slice(ordered, func(i, j int) bool {
		return f[ordered[i]][0] < f[ordered[j]][0]
	})

	if limit > 0 && limit < len(ordered) {
		ordered = ordered[:limit]
	}

	out := make([]model.TopCandidateRecord, 0, len(ordered))
	for rank, idx := range ordered {
		pretty, err := problem.PrettyPrint(x[idx])
		if err != nil {
			return nil, err
		}
		consts, chromosome := splitForRecord(problem, x[idx])
		out = append(out, model.TopCandidateRecord{
			VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
			RunID:           runID,
			Rank:            rank + 1,
			Expression: model.ExpressionRecord{
				VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
				RunID:           runID,
				Constants:       consts,
				Chromosome:      chromosome,
				Fitness:         append([]float64(nil), f[idx]...),
			},
			PrettyForm: pretty,
		})
	}
	return out, nil
}

// splitForRecord recovers a decision vector's real and integer halves using
// only the public GetNix contract, so Runner never needs access to
// regression's private splitDecisionVector.
func splitForRecord(problem *regression.Problem, x []float64) (consts []float64, chromosome []int) {
	nix := problem.GetNix()
	nEph := len(x) - nix
	consts = append([]float64(nil), x[:nEph]...)
	chromosome = make([]int, nix)
	for i, v := range x[nEph:] {
		chromosome[i] = int(v + 0.5)
	}
	return consts, chromosome
}

func toCacheEntryRecords(entries []regression.CacheSnapshotEntry) []model.CacheEntryRecord {
	out := make([]model.CacheEntryRecord, len(entries))
	for i, e := range entries {
		out[i] = model.CacheEntryRecord{
			VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
			Key:             e.Key,
			Consts:          e.Consts,
			Fitness:         e.Fitness,
			Gradient:        e.Gradient,
			Hessian:         e.Hessian,
		}
	}
	return out
}

func toSnapshotEntries(records []model.CacheEntryRecord) []regression.CacheSnapshotEntry {
	out := make([]regression.CacheSnapshotEntry, len(records))
	for i, r := range records {
		out[i] = regression.CacheSnapshotEntry{
			Key:      r.Key,
			Consts:   r.Consts,
			Fitness:  r.Fitness,
			Gradient: r.Gradient,
			Hessian:  r.Hessian,
		}
	}
	return out
}
