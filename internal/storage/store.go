package storage

import (
	"context"

	"dcgp/internal/model"
)

// Store defines persistence operations for a MemeticMOSearch run's
// diagnostics, top candidates, and fitness-cache warm-start entries.
type Store interface {
	Init(ctx context.Context) error
	SaveRunDiagnostics(ctx context.Context, runID string, diagnostics model.RunDiagnostics) error
	GetRunDiagnostics(ctx context.Context, runID string) (model.RunDiagnostics, bool, error)
	SaveTopCandidates(ctx context.Context, runID string, top []model.TopCandidateRecord) error
	GetTopCandidates(ctx context.Context, runID string) ([]model.TopCandidateRecord, bool, error)
	SaveCacheEntries(ctx context.Context, problemName string, entries []model.CacheEntryRecord) error
	GetCacheEntries(ctx context.Context, problemName string) ([]model.CacheEntryRecord, bool, error)
}
