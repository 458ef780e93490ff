//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dcgp/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "dcgp.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	diagnostics := model.RunDiagnostics{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		RunID:           "run-1",
		ProblemName:     "quadratic",
		Entries: []model.LogEntry{
			{Generation: 1, Fevals: 20, IdealLoss: 0.4, NdfSize: 3, NadirComplexity: 9},
		},
	}
	if err := store.SaveRunDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}

	loaded, ok, err := store.GetRunDiagnostics(ctx, "run-1")
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	if !ok {
		t.Fatalf("expected diagnostics for run-1")
	}
	if loaded.ProblemName != diagnostics.ProblemName || len(loaded.Entries) != len(diagnostics.Entries) {
		t.Fatalf("unexpected diagnostics loaded: %+v", loaded)
	}

	top := []model.TopCandidateRecord{
		{Rank: 1, Expression: model.ExpressionRecord{Constants: []float64{1}, Chromosome: []int{0, 1}}},
	}
	if err := store.SaveTopCandidates(ctx, "run-1", top); err != nil {
		t.Fatalf("save top candidates: %v", err)
	}
	loadedTop, ok, err := store.GetTopCandidates(ctx, "run-1")
	if err != nil {
		t.Fatalf("get top candidates: %v", err)
	}
	if !ok || len(loadedTop) != 1 || loadedTop[0].Rank != 1 {
		t.Fatalf("unexpected top candidates loaded: ok=%t value=%+v", ok, loadedTop)
	}

	entries := []model.CacheEntryRecord{
		{Key: "1,2,3", Consts: []float64{1, 2}, Fitness: []float64{0.1, 4}},
	}
	if err := store.SaveCacheEntries(ctx, "quadratic", entries); err != nil {
		t.Fatalf("save cache entries: %v", err)
	}
	loadedEntries, ok, err := store.GetCacheEntries(ctx, "quadratic")
	if err != nil {
		t.Fatalf("get cache entries: %v", err)
	}
	if !ok || len(loadedEntries) != 1 || loadedEntries[0].Key != "1,2,3" {
		t.Fatalf("unexpected cache entries loaded: ok=%t value=%+v", ok, loadedEntries)
	}

	exportDir := t.TempDir()
	path, err := store.ExportRunDiagnostics(ctx, "run-1", exportDir, time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Dir(path) != exportDir {
		t.Fatalf("export path escaped target dir: %s", path)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "dcgp.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	diagnostics := model.RunDiagnostics{RunID: "persisted-run", ProblemName: "quadratic"}
	if err := first.SaveRunDiagnostics(ctx, "persisted-run", diagnostics); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetRunDiagnostics(ctx, "persisted-run")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !ok || loaded.RunID != "persisted-run" {
		t.Fatalf("expected persisted diagnostics, got ok=%t value=%+v", ok, loaded)
	}
}
