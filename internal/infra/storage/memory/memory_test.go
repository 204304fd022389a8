package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/infra/storage"
)

func TestContactRepoSaveIsIdempotent(t *testing.T) {
	store := NewMemoryStorage()
	repo := NewContactRepo(store)
	ctx := context.Background()

	c := &domain.QualifiedContact{
		JobID:       "job-1",
		URL:         "https://www.linkedin.com/in/alice",
		Name:        "Alice",
		QualifiedAt: time.Now(),
	}
	if err := repo.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	c2 := *c
	c2.Headline = "Engineer"
	if err := repo.Save(ctx, &c2); err != nil {
		t.Fatalf("Save: %v", err)
	}

	count, err := repo.Count(ctx, "job-1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 contact after re-save, got %d", count)
	}

	got, err := repo.GetByJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByJob: %v", err)
	}
	if got[0].Headline != "Engineer" {
		t.Fatalf("expected updated headline, got %q", got[0].Headline)
	}
}

func TestContactRepoGetByJobOrdersByQualifiedAt(t *testing.T) {
	store := NewMemoryStorage()
	repo := NewContactRepo(store)
	ctx := context.Background()

	base := time.Now()
	batch := []*domain.QualifiedContact{
		{JobID: "job-1", URL: "u3", QualifiedAt: base.Add(3 * time.Second)},
		{JobID: "job-1", URL: "u1", QualifiedAt: base.Add(1 * time.Second)},
		{JobID: "job-1", URL: "u2", QualifiedAt: base.Add(2 * time.Second)},
	}
	if err := repo.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	got, err := repo.GetByJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByJob: %v", err)
	}
	want := []string{"u1", "u2", "u3"}
	for i, w := range want {
		if got[i].URL != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, got[i].URL)
		}
	}
}

func TestRunRepoFinish(t *testing.T) {
	store := NewMemoryStorage()
	repo := NewRunRepo(store)
	ctx := context.Background()

	run := &domain.JobRun{ID: "run-1", JobID: "job-1", Phase: "collect", StartedAt: time.Now()}
	if err := repo.Save(ctx, run); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Finish(ctx, "run-1", "completed"); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	latest, err := repo.GetLatest(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.Outcome != "completed" || latest.FinishedAt.IsZero() {
		t.Fatalf("expected finished run, got %+v", latest)
	}

	if err := repo.Finish(ctx, "missing", "completed"); !errors.Is(err, storage.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunRepoGetLatestPicksNewest(t *testing.T) {
	store := NewMemoryStorage()
	repo := NewRunRepo(store)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := &domain.JobRun{
			ID:             id,
			JobID:          "job-1",
			RecursionCount: i,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Save(ctx, run); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	latest, err := repo.GetLatest(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.ID != "run-3" {
		t.Fatalf("expected run-3, got %s", latest.ID)
	}
}
