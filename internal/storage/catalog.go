package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Catalog indexes run metadata in SQLite so runs can be queried without
// scanning run directories.
type Catalog struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// Filter selects catalog rows. Empty fields match everything.
type Filter struct {
	System  string
	Stepper string
	Status  string
	Limit   int
}

func Open(ctx context.Context, path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("catalog path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Catalog{path: path, db: db}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			system      TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			stepper     TEXT NOT NULL,
			log_type    TEXT NOT NULL,
			time_step   REAL NOT NULL,
			rel_tol     REAL NOT NULL,
			abs_tol     REAL NOT NULL,
			start       REAL NOT NULL,
			duration    REAL NOT NULL,
			status      TEXT NOT NULL,
			steps       INTEGER NOT NULL,
			rejected    INTEGER NOT NULL,
			evaluations INTEGER NOT NULL,
			params      TEXT NOT NULL,
			metrics     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_system ON runs(system);
	`)
	return err
}

func (c *Catalog) getDB() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, errors.New("catalog is closed")
	}
	return c.db, nil
}

// Record inserts or replaces a run.
func (c *Catalog) Record(ctx context.Context, meta RunMetadata) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}

	params, err := json.Marshal(nonNil(meta.Params))
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(nonNil(meta.Metrics))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, system, created_at, stepper, log_type, time_step, rel_tol, abs_tol,
			start, duration, status, steps, rejected, evaluations, params, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			steps = excluded.steps,
			rejected = excluded.rejected,
			evaluations = excluded.evaluations,
			metrics = excluded.metrics
	`, meta.ID, meta.System, meta.Timestamp.UnixNano(), meta.Stepper, meta.Log,
		meta.TimeStep, meta.RelTol, meta.AbsTol, meta.Start, meta.Duration,
		meta.Status, meta.Steps, meta.Rejected, meta.Evaluations, string(params), string(metrics))
	if err != nil {
		return fmt.Errorf("record run %s: %w", meta.ID, err)
	}
	return nil
}

// Query returns matching runs, newest first.
func (c *Catalog) Query(ctx context.Context, f Filter) ([]RunMetadata, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if f.System != "" {
		where = append(where, "system = ?")
		args = append(args, f.System)
	}
	if f.Stepper != "" {
		where = append(where, "stepper = ?")
		args = append(args, f.Stepper)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	q := `SELECT id, system, created_at, stepper, log_type, time_step, rel_tol, abs_tol,
		start, duration, status, steps, rejected, evaluations, params, metrics FROM runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			meta            RunMetadata
			created         int64
			params, metrics string
		)
		if err := rows.Scan(&meta.ID, &meta.System, &created, &meta.Stepper, &meta.Log,
			&meta.TimeStep, &meta.RelTol, &meta.AbsTol, &meta.Start, &meta.Duration,
			&meta.Status, &meta.Steps, &meta.Rejected, &meta.Evaluations, &params, &metrics); err != nil {
			return nil, err
		}
		meta.Timestamp = time.Unix(0, created)
		if err := json.Unmarshal([]byte(params), &meta.Params); err != nil {
			return nil, fmt.Errorf("decode params of %s: %w", meta.ID, err)
		}
		if err := json.Unmarshal([]byte(metrics), &meta.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics of %s: %w", meta.ID, err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// Delete removes a run. Deleting an unknown run returns ErrRunNotFound.
func (c *Catalog) Delete(ctx context.Context, runID string) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
