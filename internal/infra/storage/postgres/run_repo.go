package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/infra/storage"
)

// RunRepo implements storage.RunRepository using PostgreSQL.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new PostgreSQL run repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save saves/updates a job run.
func (r *RunRepo) Save(ctx context.Context, run *domain.JobRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_id, recursion_count, phase, started_at, finished_at, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			finished_at = EXCLUDED.finished_at,
			outcome = EXCLUDED.outcome`,
		run.ID, run.JobID, run.RecursionCount, run.Phase,
		run.StartedAt, nullTime(run.FinishedAt), run.Outcome,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Finish records the terminal outcome of a run.
func (r *RunRepo) Finish(ctx context.Context, id string, outcome string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE job_runs SET finished_at = $1, outcome = $2 WHERE id = $3`,
		time.Now().UTC(), outcome, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrRunNotFound
	}
	return nil
}

// GetByJob retrieves all runs for a logical job, newest first.
func (r *RunRepo) GetByJob(ctx context.Context, jobID string) ([]*domain.JobRun, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, job_id, recursion_count, phase, started_at, finished_at, outcome
		FROM job_runs
		WHERE job_id = $1
		ORDER BY started_at DESC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.JobRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetLatest retrieves the most recent run for a job.
func (r *RunRepo) GetLatest(ctx context.Context, jobID string) (*domain.JobRun, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, job_id, recursion_count, phase, started_at, finished_at, outcome
		FROM job_runs
		WHERE job_id = $1
		ORDER BY started_at DESC
		LIMIT 1`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil // Not found
	}
	return scanRun(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.JobRun, error) {
	var run domain.JobRun
	var finished sql.NullTime
	var outcome sql.NullString
	err := row.Scan(&run.ID, &run.JobID, &run.RecursionCount, &run.Phase,
		&run.StartedAt, &finished, &outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	run.Outcome = outcome.String
	return &run, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
