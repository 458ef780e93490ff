package storage

import (
	"context"
	"sync"

	"dcgp/internal/model"
)

// MemoryStore is an in-process, mutex-guarded Store, adapted from the
// teacher's map-backed implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	diagnostics map[string]model.RunDiagnostics
	topCands    map[string][]model.TopCandidateRecord
	cacheEnts   map[string][]model.CacheEntryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.diagnostics = make(map[string]model.RunDiagnostics)
	s.topCands = make(map[string][]model.TopCandidateRecord)
	s.cacheEnts = make(map[string][]model.CacheEntryRecord)
	return nil
}

func (s *MemoryStore) SaveRunDiagnostics(_ context.Context, runID string, diagnostics model.RunDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diagnostics[runID] = diagnostics
	return nil
}

func (s *MemoryStore) GetRunDiagnostics(_ context.Context, runID string) (model.RunDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	return diagnostics, ok, nil
}

func (s *MemoryStore) SaveTopCandidates(_ context.Context, runID string, top []model.TopCandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.TopCandidateRecord, len(top))
	copy(copied, top)
	s.topCands[runID] = copied
	return nil
}

func (s *MemoryStore) GetTopCandidates(_ context.Context, runID string) ([]model.TopCandidateRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	top, ok := s.topCands[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.TopCandidateRecord, len(top))
	copy(copied, top)
	return copied, true, nil
}

func (s *MemoryStore) SaveCacheEntries(_ context.Context, problemName string, entries []model.CacheEntryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.CacheEntryRecord, len(entries))
	copy(copied, entries)
	s.cacheEnts[problemName] = copied
	return nil
}

func (s *MemoryStore) GetCacheEntries(_ context.Context, problemName string) ([]model.CacheEntryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.cacheEnts[problemName]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.CacheEntryRecord, len(entries))
	copy(copied, entries)
	return copied, true, nil
}
