// Package store persists labeling runs to SQLite. The CSV the builder
// emits is the hand-off artifact; the store is the queryable history of
// runs behind it.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"speclens/internal/dataset"
	"speclens/internal/features"
	"speclens/internal/verify"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

const currentSchemaVersion = schemaVersionV1

// RunMeta describes one labeling run.
type RunMeta struct {
	ID         int64
	PoolPath   string
	Trials     int
	Seed       int64
	StepBudget int
	Stats      dataset.Stats
	CreatedAt  string
}

// SqlStore persists runs and their labeled records in SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations. The
// parent directory is created if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		v = currentSchemaVersion
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	if v > currentSchemaVersion {
		return fmt.Errorf("store schema version %d is newer than this build supports (%d)", v, currentSchemaVersion)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SqlStore) Close() error { return s.db.Close() }

// SaveRun records a completed labeling run and its records in one
// transaction and returns the run ID.
func (s *SqlStore) SaveRun(meta RunMeta, recs []dataset.Record) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`INSERT INTO runs
		(pool_path, trials, seed, step_budget, records, safe, risky, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.PoolPath, meta.Trials, meta.Seed, meta.StepBudget,
		meta.Stats.Records, meta.Stats.Safe, meta.Stats.Risky, nowUTC())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO records
		(run_id, source_file, name, class, features, label)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		payload, err := json.Marshal(r.Features)
		if err != nil {
			return 0, fmt.Errorf("marshal features for %s: %w", r.ID(), err)
		}
		if _, err := stmt.Exec(runID, r.SourceFile, r.Name, r.Class, string(payload), string(r.Label)); err != nil {
			return 0, fmt.Errorf("insert record %s: %w", r.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// Runs lists all runs, newest first.
func (s *SqlStore) Runs() ([]RunMeta, error) {
	rows, err := s.db.Query(`SELECT id, pool_path, trials, seed, step_budget,
		records, safe, risky, created_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		var m RunMeta
		if err := rows.Scan(&m.ID, &m.PoolPath, &m.Trials, &m.Seed, &m.StepBudget,
			&m.Stats.Records, &m.Stats.Safe, &m.Stats.Risky, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RunRecords returns the labeled records of one run in insertion order.
func (s *SqlStore) RunRecords(runID int64) ([]dataset.Record, error) {
	rows, err := s.db.Query(`SELECT source_file, name, class, features, label
		FROM records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []dataset.Record
	for rows.Next() {
		var r dataset.Record
		var payload, label string
		if err := rows.Scan(&r.SourceFile, &r.Name, &r.Class, &payload, &label); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var v features.Vector
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("unmarshal features for %s: %w", r.Name, err)
		}
		r.Features = v
		r.Label = verify.Label(label)
		out = append(out, r)
	}
	return out, rows.Err()
}
