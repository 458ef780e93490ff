package storage

import (
	"context"
	"testing"

	"dcgp/internal/model"
)

func TestMemoryStoreRunDiagnosticsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := model.RunDiagnostics{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		RunID:           "run-1",
		ProblemName:     "quadratic",
		Entries: []model.LogEntry{
			{Generation: 1, Fevals: 20, IdealLoss: 0.5, NdfSize: 3, NadirComplexity: 8},
		},
	}
	if err := store.SaveRunDiagnostics(ctx, "run-1", input); err != nil {
		t.Fatalf("save: %v", err)
	}

	output, ok, err := store.GetRunDiagnostics(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted diagnostics")
	}
	if output.ProblemName != input.ProblemName || len(output.Entries) != len(input.Entries) {
		t.Fatalf("unexpected diagnostics: %+v", output)
	}
}

func TestMemoryStoreGetRunDiagnosticsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, ok, err := store.GetRunDiagnostics(ctx, "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected no diagnostics for unknown run")
	}
}

func TestMemoryStoreTopCandidatesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.TopCandidateRecord{
		{
			VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
			RunID:           "run-1",
			Rank:            1,
			Expression: model.ExpressionRecord{
				Constants:  []float64{1},
				Chromosome: []int{0, 1, 2},
				Fitness:    []float64{0.1, 3},
			},
		},
	}
	if err := store.SaveTopCandidates(ctx, "run-1", input); err != nil {
		t.Fatalf("save: %v", err)
	}

	output, ok, err := store.GetTopCandidates(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted top candidates")
	}
	if len(output) != 1 || output[0].Rank != 1 {
		t.Fatalf("unexpected top candidates: %+v", output)
	}

	// mutating the returned slice must not affect the store's copy.
	output[0].Rank = 99
	reread, _, err := store.GetTopCandidates(ctx, "run-1")
	if err != nil {
		t.Fatalf("reget: %v", err)
	}
	if reread[0].Rank != 1 {
		t.Fatalf("store was mutated through returned slice: %+v", reread)
	}
}

func TestMemoryStoreCacheEntriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.CacheEntryRecord{
		{Key: "1,2,3", Consts: []float64{1, 2}, Fitness: []float64{0.2, 5}},
	}
	if err := store.SaveCacheEntries(ctx, "quadratic", input); err != nil {
		t.Fatalf("save: %v", err)
	}

	output, ok, err := store.GetCacheEntries(ctx, "quadratic")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted cache entries")
	}
	if len(output) != 1 || output[0].Key != "1,2,3" {
		t.Fatalf("unexpected cache entries: %+v", output)
	}
}
