// Package checkpoint persists workflow state, harvested-link indexes, and
// partial-work files on local disk. Every write goes through a
// write-temp-then-rename so a reader can never observe a half-written
// checkpoint.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
)

// Store owns a directory of checkpoint artifacts for one or more jobs.
type Store struct {
	dir string
}

// NewStore creates the checkpoint directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("checkpoint: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the checkpoint directory.
func (s *Store) Dir() string { return s.dir }

// StatePath returns the state-file path for a job.
func (s *Store) StatePath(jobID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("state-%s.json", jobID))
}

// WriteState atomically persists the state record and returns its path.
// Callers are responsible for sealing secret fields first.
func (s *Store) WriteState(state *domain.WorkflowState) (string, error) {
	path := s.StatePath(state.JobID)
	if err := s.writeJSON(path, state); err != nil {
		return "", fmt.Errorf("checkpoint: write state: %w", err)
	}
	return path, nil
}

// ReadState loads and decodes a state file.
func (s *Store) ReadState(path string) (*domain.WorkflowState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read state: %w", err)
	}

	var state domain.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("checkpoint: decode state: %w", err)
	}
	if state.SchemaVersion != domain.SchemaVersion {
		return nil, fmt.Errorf("checkpoint: unsupported schema version %d", state.SchemaVersion)
	}
	return &state, nil
}

// DeleteState removes a state file.
func (s *Store) DeleteState(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checkpoint: delete state: %w", err)
	}
	return nil
}

// LinksPath returns the master-index path for a job.
func (s *Store) LinksPath(jobID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("links-%s.json", jobID))
}

// WriteLinks atomically persists the accumulated link set for a job and
// returns its path.
func (s *Store) WriteLinks(jobID string, links []domain.Link) (string, error) {
	path := s.LinksPath(jobID)
	if err := s.writeJSON(path, links); err != nil {
		return "", fmt.Errorf("checkpoint: write links: %w", err)
	}
	return path, nil
}

// ReadLinks loads a link checkpoint. A missing file yields an empty set,
// not an error: a fresh job simply has no prior progress.
func (s *Store) ReadLinks(path string) ([]domain.Link, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read links: %w", err)
	}

	var links []domain.Link
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("checkpoint: decode links: %w", err)
	}
	return links, nil
}

// WritePartialWork persists the remaining unprocessed items on escalation.
// The name carries a timestamp so concurrent jobs never collide.
func (s *Store) WritePartialWork(jobID string, links []domain.Link) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("work-%s-%d.json", jobID, time.Now().UnixNano()))
	if err := s.writeJSON(path, links); err != nil {
		return "", fmt.Errorf("checkpoint: write partial work: %w", err)
	}
	return path, nil
}

// WriteQualified persists the growing qualified-contact list so partial
// results survive a crash mid-batch.
func (s *Store) WriteQualified(jobID string, contacts []domain.QualifiedContact) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("qualified-%s.json", jobID))
	if err := s.writeJSON(path, contacts); err != nil {
		return "", fmt.Errorf("checkpoint: write qualified: %w", err)
	}
	return path, nil
}

// writeJSON writes v to path via a temp file in the same directory followed
// by a rename, which is atomic on POSIX filesystems.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
