// Package memory provides in-process repository implementations used when
// no database URL is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/infra/storage"
)

var nowFunc = time.Now

type MemoryStorage struct {
	contacts map[string]map[string]*domain.QualifiedContact // jobID -> url -> contact
	runs     map[string]*domain.JobRun                      // run ID -> run
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		contacts: make(map[string]map[string]*domain.QualifiedContact),
		runs:     make(map[string]*domain.JobRun),
	}
}

// -----------------------------------------------------------------------------
// Contact Repository
// -----------------------------------------------------------------------------

type ContactRepo struct {
	store *MemoryStorage
}

func NewContactRepo(store *MemoryStorage) *ContactRepo {
	return &ContactRepo{store: store}
}

func (r *ContactRepo) Save(ctx context.Context, contact *domain.QualifiedContact) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.save(contact)
	return nil
}

func (r *ContactRepo) SaveBatch(ctx context.Context, contacts []*domain.QualifiedContact) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range contacts {
		r.save(c)
	}
	return nil
}

func (r *ContactRepo) save(contact *domain.QualifiedContact) {
	byURL := r.store.contacts[contact.JobID]
	if byURL == nil {
		byURL = make(map[string]*domain.QualifiedContact)
		r.store.contacts[contact.JobID] = byURL
	}
	c := *contact
	byURL[contact.URL] = &c
}

func (r *ContactRepo) GetByJob(ctx context.Context, jobID string) ([]*domain.QualifiedContact, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var contacts []*domain.QualifiedContact
	for _, c := range r.store.contacts[jobID] {
		contacts = append(contacts, c)
	}
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].QualifiedAt.Before(contacts[j].QualifiedAt)
	})
	return contacts, nil
}

func (r *ContactRepo) Count(ctx context.Context, jobID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.contacts[jobID]), nil
}

// -----------------------------------------------------------------------------
// Run Repository
// -----------------------------------------------------------------------------

type RunRepo struct {
	store *MemoryStorage
}

func NewRunRepo(store *MemoryStorage) *RunRepo {
	return &RunRepo{store: store}
}

func (r *RunRepo) Save(ctx context.Context, run *domain.JobRun) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *run
	r.store.runs[run.ID] = &cp
	return nil
}

func (r *RunRepo) Finish(ctx context.Context, id string, outcome string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	run, ok := r.store.runs[id]
	if !ok {
		return storage.ErrRunNotFound
	}
	run.Outcome = outcome
	run.FinishedAt = nowFunc()
	return nil
}

func (r *RunRepo) GetByJob(ctx context.Context, jobID string) ([]*domain.JobRun, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var runs []*domain.JobRun
	for _, run := range r.store.runs {
		if run.JobID == jobID {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func (r *RunRepo) GetLatest(ctx context.Context, jobID string) (*domain.JobRun, error) {
	runs, err := r.GetByJob(ctx, jobID)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}
