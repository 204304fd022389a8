package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/prospector/internal/core/domain"
)

// ContactRepo implements storage.ContactRepository using PostgreSQL.
type ContactRepo struct {
	db *DB
}

// NewContactRepo creates a new PostgreSQL contact repository.
func NewContactRepo(db *DB) *ContactRepo {
	return &ContactRepo{db: db}
}

// Save saves a qualified contact. A seen (job_id, url) pair is updated in
// place so replays after healing stay idempotent.
func (r *ContactRepo) Save(ctx context.Context, contact *domain.QualifiedContact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qualified_contacts (job_id, url, name, headline, qualified_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id, url) DO UPDATE SET
			name = EXCLUDED.name,
			headline = EXCLUDED.headline,
			qualified_at = EXCLUDED.qualified_at`,
		contact.JobID, contact.URL, contact.Name, contact.Headline, contact.QualifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// SaveBatch saves multiple qualified contacts in one transaction.
func (r *ContactRepo) SaveBatch(ctx context.Context, contacts []*domain.QualifiedContact) error {
	if len(contacts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range contacts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO qualified_contacts (job_id, url, name, headline, qualified_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (job_id, url) DO UPDATE SET
				name = EXCLUDED.name,
				headline = EXCLUDED.headline,
				qualified_at = EXCLUDED.qualified_at`,
			c.JobID, c.URL, c.Name, c.Headline, c.QualifiedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save contact batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contact batch: %w", err)
	}
	return nil
}

// GetByJob retrieves all qualified contacts for a job.
func (r *ContactRepo) GetByJob(ctx context.Context, jobID string) ([]*domain.QualifiedContact, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT job_id, url, name, headline, qualified_at
		FROM qualified_contacts
		WHERE job_id = $1
		ORDER BY qualified_at`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*domain.QualifiedContact
	for rows.Next() {
		var c domain.QualifiedContact
		if err := rows.Scan(&c.JobID, &c.URL, &c.Name, &c.Headline, &c.QualifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}

// Count returns the count of qualified contacts for a job.
func (r *ContactRepo) Count(ctx context.Context, jobID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM qualified_contacts WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}
