// Package storage defines the repository interfaces the pipeline persists
// through. Implementations live in the postgres and memory subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/vietddude/prospector/internal/core/domain"
)

var (
	// ErrRunNotFound is returned when a job run doesn't exist
	ErrRunNotFound = errors.New("job run not found")
)

// ContactRepository handles qualified-contact storage operations
type ContactRepository interface {
	// Save saves a qualified contact (idempotent on job_id + url)
	Save(ctx context.Context, contact *domain.QualifiedContact) error

	// SaveBatch saves multiple qualified contacts
	SaveBatch(ctx context.Context, contacts []*domain.QualifiedContact) error

	// GetByJob retrieves all qualified contacts for a job
	GetByJob(ctx context.Context, jobID string) ([]*domain.QualifiedContact, error)

	// Count returns the count of qualified contacts for a job
	Count(ctx context.Context, jobID string) (int, error)
}

// RunRepository handles job-run bookkeeping
type RunRepository interface {
	// Save saves/updates a job run
	Save(ctx context.Context, run *domain.JobRun) error

	// Finish records the terminal outcome of a run
	Finish(ctx context.Context, id string, outcome string) error

	// GetByJob retrieves all runs for a logical job, newest first
	GetByJob(ctx context.Context, jobID string) ([]*domain.JobRun, error)

	// GetLatest retrieves the most recent run for a job
	GetLatest(ctx context.Context, jobID string) (*domain.JobRun, error)
}
