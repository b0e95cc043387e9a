// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/copyforge/rsa-writer/internal/pipeline"
	"github.com/copyforge/rsa-writer/internal/storage"
)

// PoolConfig controls the Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the stores use; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool creates a pgx pool from the provided config.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// JobStore persists jobs in the projects table. Expected schema:
//
//	CREATE TABLE projects (
//	    id             TEXT PRIMARY KEY,
//	    owner_id       TEXT NOT NULL,
//	    label          TEXT NOT NULL DEFAULT '',
//	    urls           JSONB NOT NULL,
//	    scrape_results JSONB,
//	    generated_copy JSONB,
//	    status         TEXT NOT NULL,
//	    progress_done  INT NOT NULL DEFAULT 0,
//	    progress_total INT NOT NULL DEFAULT 0,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    updated_at     TIMESTAMPTZ NOT NULL
//	);
type JobStore struct {
	pool Pool
}

// NewJobStore constructs a JobStore over an existing pool.
func NewJobStore(pool Pool) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a new project row.
func (s *JobStore) CreateJob(ctx context.Context, job pipeline.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	urlsJSON, err := json.Marshal(job.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO projects (id, owner_id, label, urls, status, progress_done, progress_total, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.OwnerID, job.Label, urlsJSON, string(job.Status),
		job.Progress.Completed, job.Progress.Total, job.Created, job.Updated,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetJob loads a project row by ID.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (pipeline.Job, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, owner_id, label, urls, scrape_results, generated_copy, status, progress_done, progress_total, created_at, updated_at
FROM projects WHERE id = $1`, jobID)

	var (
		job           pipeline.Job
		status        string
		urlsJSON      []byte
		scrapeJSON    []byte
		generatedJSON []byte
	)
	err := row.Scan(&job.ID, &job.OwnerID, &job.Label, &urlsJSON, &scrapeJSON, &generatedJSON,
		&status, &job.Progress.Completed, &job.Progress.Total, &job.Created, &job.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.Job{}, storage.ErrNotFound
	}
	if err != nil {
		return pipeline.Job{}, fmt.Errorf("select project: %w", err)
	}
	job.Status = pipeline.JobStatus(status)

	if err := json.Unmarshal(urlsJSON, &job.URLs); err != nil {
		return pipeline.Job{}, fmt.Errorf("unmarshal urls: %w", err)
	}
	if len(scrapeJSON) > 0 {
		if err := json.Unmarshal(scrapeJSON, &job.ScrapeResults); err != nil {
			return pipeline.Job{}, fmt.Errorf("unmarshal scrape results: %w", err)
		}
	}
	if len(generatedJSON) > 0 {
		if err := json.Unmarshal(generatedJSON, &job.GeneratedCopy); err != nil {
			return pipeline.Job{}, fmt.Errorf("unmarshal generated copy: %w", err)
		}
	}
	return job, nil
}

// UpdateStatus applies a transition with the allowed predecessor states baked
// into the WHERE clause, so a stale write for an earlier phase can never
// overwrite a later one even across concurrent writers.
func (s *JobStore) UpdateStatus(ctx context.Context, jobID string, status pipeline.JobStatus) error {
	from := allowedFrom(status)
	if len(from) == 0 {
		return fmt.Errorf("%w: no state may move to %s", pipeline.ErrInvalidTransition, status)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE projects SET status = $2, updated_at = now() WHERE id = $1 AND status = ANY($3)`,
		jobID, string(status), from,
	)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, gerr := s.currentStatus(ctx, jobID)
		if gerr != nil {
			return gerr
		}
		return pipeline.CheckTransition(current, status)
	}
	return nil
}

// UpdateProgress records scrape progress; rows outside the scraping phase are
// left untouched without error.
func (s *JobStore) UpdateProgress(ctx context.Context, jobID string, progress pipeline.Progress) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE projects SET progress_done = $2, progress_total = $3, updated_at = now()
WHERE id = $1 AND status = $4`,
		jobID, progress.Completed, progress.Total, string(pipeline.StatusScraping),
	)
	if err != nil {
		return fmt.Errorf("update project progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := s.currentStatus(ctx, jobID); gerr != nil {
			return gerr
		}
	}
	return nil
}

// PutScrapeResults replaces the project's scrape-result document.
func (s *JobStore) PutScrapeResults(ctx context.Context, jobID string, results map[string]pipeline.ScrapeResult) error {
	doc, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal scrape results: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE projects SET scrape_results = $2, updated_at = now() WHERE id = $1`, jobID, doc)
	if err != nil {
		return fmt.Errorf("store scrape results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutGeneratedCopy merges copy for the given URLs into the JSONB document,
// preserving entries for other URLs.
func (s *JobStore) PutGeneratedCopy(ctx context.Context, jobID string, copies map[string]pipeline.GeneratedCopy) error {
	doc, err := json.Marshal(copies)
	if err != nil {
		return fmt.Errorf("marshal generated copy: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE projects SET generated_copy = COALESCE(generated_copy, '{}'::jsonb) || $2::jsonb, updated_at = now()
WHERE id = $1`, jobID, doc)
	if err != nil {
		return fmt.Errorf("store generated copy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *JobStore) currentStatus(ctx context.Context, jobID string) (pipeline.JobStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM projects WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select project status: %w", err)
	}
	return pipeline.JobStatus(status), nil
}

// allowedFrom lists the states permitted to transition into the target.
func allowedFrom(to pipeline.JobStatus) []string {
	switch to {
	case pipeline.StatusScraping:
		return []string{string(pipeline.StatusPending)}
	case pipeline.StatusGenerating:
		return []string{string(pipeline.StatusCompleted)}
	case pipeline.StatusCompleted, pipeline.StatusFailed:
		return []string{string(pipeline.StatusScraping), string(pipeline.StatusGenerating)}
	default:
		return nil
	}
}
