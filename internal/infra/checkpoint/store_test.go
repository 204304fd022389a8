package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/core/workflow"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestStateRoundtrip(t *testing.T) {
	s := newTestStore(t)
	state := workflow.NewInitialState(workflow.Params{JobID: "job-1", SearchURL: "https://example.com"})

	path, err := s.WriteState(state)
	if err != nil {
		t.Fatalf("write state: %v", err)
	}

	got, err := s.ReadState(path)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if got.JobID != "job-1" || got.BatchSize != workflow.DefaultBatchSize {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	if err := s.DeleteState(path); err != nil {
		t.Fatalf("delete state: %v", err)
	}
	if _, err := s.ReadState(path); !errors.Is(err, domain.ErrCheckpointNotFound) {
		t.Errorf("want ErrCheckpointNotFound after delete, got %v", err)
	}
	// Deleting again is not an error.
	if err := s.DeleteState(path); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestReadStateRejectsUnknownSchema(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "state-old.json")
	if err := os.WriteFile(path, []byte(`{"schema_version":99,"job_id":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadState(path); err == nil {
		t.Error("want error for unsupported schema version")
	}
}

func TestLinksRoundtripAndMissing(t *testing.T) {
	s := newTestStore(t)

	links, err := s.ReadLinks(s.LinksPath("job-1"))
	if err != nil {
		t.Fatalf("read missing links: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("missing checkpoint should yield empty set, got %d", len(links))
	}

	want := []domain.Link{
		{URL: "https://www.linkedin.com/in/a", Page: 1},
		{URL: "https://www.linkedin.com/in/b", Page: 2},
	}
	path, err := s.WriteLinks("job-1", want)
	if err != nil {
		t.Fatalf("write links: %v", err)
	}

	got, err := s.ReadLinks(path)
	if err != nil {
		t.Fatalf("read links: %v", err)
	}
	if len(got) != 2 || got[0].URL != want[0].URL {
		t.Errorf("links roundtrip mismatch: %+v", got)
	}
}

func TestWritePartialWorkUsesTimestampedName(t *testing.T) {
	s := newTestStore(t)
	links := []domain.Link{{URL: "https://www.linkedin.com/in/x"}}

	p1, err := s.WritePartialWork("job-1", links)
	if err != nil {
		t.Fatalf("write partial work: %v", err)
	}
	time.Sleep(time.Millisecond)
	p2, err := s.WritePartialWork("job-1", links)
	if err != nil {
		t.Fatalf("write partial work: %v", err)
	}

	if p1 == p2 {
		t.Errorf("partial-work names collide: %s", p1)
	}
	if !strings.Contains(filepath.Base(p1), "work-job-1-") {
		t.Errorf("unexpected name %s", p1)
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	s := newTestStore(t)
	state := workflow.NewInitialState(workflow.Params{JobID: "job-1"})
	if _, err := s.WriteState(state); err != nil {
		t.Fatalf("write state: %v", err)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
