//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
	_ "modernc.org/sqlite"

	"dcgp/internal/model"
)

// SQLiteStore persists run diagnostics, top candidates, and cache warm-start
// entries as JSON blobs in a SQLite database, mirroring the teacher's
// payload-column-plus-upsert schema.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	store := NewSQLiteStore(path)
	if err := store.Init(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRunDiagnostics(ctx context.Context, runID string, diagnostics model.RunDiagnostics) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRunDiagnostics(diagnostics)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO run_diagnostics (run_id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, runID, diagnostics.SchemaVersion, diagnostics.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRunDiagnostics(ctx context.Context, runID string) (model.RunDiagnostics, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunDiagnostics{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM run_diagnostics WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunDiagnostics{}, false, nil
		}
		return model.RunDiagnostics{}, false, err
	}

	diagnostics, err := DecodeRunDiagnostics(payload)
	if err != nil {
		return model.RunDiagnostics{}, false, fmt.Errorf("decode run diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func (s *SQLiteStore) SaveTopCandidates(ctx context.Context, runID string, top []model.TopCandidateRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTopCandidates(top)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO top_candidates (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) GetTopCandidates(ctx context.Context, runID string) ([]model.TopCandidateRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM top_candidates WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	top, err := DecodeTopCandidates(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode top candidates %s: %w", runID, err)
	}
	return top, true, nil
}

func (s *SQLiteStore) SaveCacheEntries(ctx context.Context, problemName string, entries []model.CacheEntryRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeCacheEntries(entries)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO cache_entries (problem_name, payload)
		VALUES (?, ?)
		ON CONFLICT(problem_name) DO UPDATE SET
			payload = excluded.payload
	`, problemName, payload)
	return err
}

func (s *SQLiteStore) GetCacheEntries(ctx context.Context, problemName string) ([]model.CacheEntryRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM cache_entries WHERE problem_name = ?`, problemName).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	entries, err := DecodeCacheEntries(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode cache entries %s: %w", problemName, err)
	}
	return entries, true, nil
}

// ExportRunDiagnostics writes a run's diagnostics to a timestamped JSON file
// under dir, for operators who want a standalone artifact outside the
// database. The filename embeds at formatted per strftime's "%Y%m%dT%H%M%S"
// layout so exports from the same run sort lexically by time.
func (s *SQLiteStore) ExportRunDiagnostics(ctx context.Context, runID string, dir string, at time.Time) (string, error) {
	diagnostics, ok, err := s.GetRunDiagnostics(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no diagnostics recorded for run %s", runID)
	}

	payload, err := EncodeRunDiagnostics(diagnostics)
	if err != nil {
		return "", err
	}

	stamp := strftime.Format("%Y%m%dT%H%M%S", at)
	path := filepath.Join(dir, fmt.Sprintf("dcgp-run-%s.json", stamp))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS run_diagnostics (
			run_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS top_candidates (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS cache_entries (
			problem_name TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
