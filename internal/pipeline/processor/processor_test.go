package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/core/workflow"
	"github.com/vietddude/prospector/internal/infra/browser"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeSession struct {
	// failing URLs always error; recoverOnRetry URLs fail once then
	// succeed.
	failing        map[string]bool
	recoverOnRetry map[string]bool
	attempts       map[string]int
	qualify        map[string]bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		failing:        map[string]bool{},
		recoverOnRetry: map[string]bool{},
		attempts:       map[string]int{},
		qualify:        map[string]bool{},
	}
}

func (f *fakeSession) FetchPage(ctx context.Context, page int, _ browser.Filters) ([]domain.Link, error) {
	return nil, errors.New("not used")
}

func (f *fakeSession) AnalyzeItem(ctx context.Context, link domain.Link, token string) (*domain.AnalysisResult, error) {
	f.attempts[link.URL]++
	if f.failing[link.URL] {
		if f.recoverOnRetry[link.URL] && f.attempts[link.URL] > 1 {
			return &domain.AnalysisResult{Link: link, Qualified: f.qualify[link.URL]}, nil
		}
		return nil, fmt.Errorf("analyze %s: navigation timeout", link.URL)
	}
	return &domain.AnalysisResult{Link: link, Qualified: f.qualify[link.URL]}, nil
}

func (f *fakeSession) Close() error { return nil }

type fakeCheckpoints struct {
	qualifiedWrites [][]domain.QualifiedContact
	partialWork     []domain.Link
	partialWritten  bool
}

func (f *fakeCheckpoints) WriteQualified(jobID string, contacts []domain.QualifiedContact) (string, error) {
	cp := make([]domain.QualifiedContact, len(contacts))
	copy(cp, contacts)
	f.qualifiedWrites = append(f.qualifiedWrites, cp)
	return "qualified-" + jobID + ".json", nil
}

func (f *fakeCheckpoints) WritePartialWork(jobID string, links []domain.Link) (string, error) {
	f.partialWork = links
	f.partialWritten = true
	return "work-" + jobID + "-1.json", nil
}

type fakeEscalator struct {
	called bool
	state  domain.WorkflowState
	phase  domain.HealPhase
}

func (f *fakeEscalator) Escalate(ctx context.Context, state *domain.WorkflowState, phase domain.HealPhase, reason string) error {
	f.called = true
	f.state = *state
	f.phase = phase
	return nil
}

type fakeHealth struct {
	beats  int
	depths []int
}

func (f *fakeHealth) Heartbeat(jobID, phase string, recursion, done, total int) {
	f.beats++
}

func (f *fakeHealth) SetQueueDepth(jobID string, depth int) {
	f.depths = append(f.depths, depth)
}

func tenItems() []domain.Link {
	items := make([]domain.Link, 10)
	for i := range items {
		items[i] = domain.Link{URL: fmt.Sprintf("https://www.linkedin.com/in/p%d", i)}
	}
	return items
}

func newState() *domain.WorkflowState {
	s := workflow.NewInitialState(workflow.Params{JobID: "job-1"})
	s.BearerToken = "token"
	return s
}

func newTestProcessor(session browser.Session, cp Checkpoints, esc Escalator) *Processor {
	return New(Config{PauseWindow: time.Millisecond}, session, cp, esc, nil)
}

// =============================================================================
// Tests
// =============================================================================

func TestProcessBeatsPerItemAndReportsQueueDepth(t *testing.T) {
	session := newFakeSession()
	session.failing["https://www.linkedin.com/in/p2"] = true
	session.recoverOnRetry["https://www.linkedin.com/in/p2"] = true
	hm := &fakeHealth{}

	p := newTestProcessor(session, &fakeCheckpoints{}, &fakeEscalator{})
	p.SetHealth(hm)

	if _, err := p.Process(context.Background(), newState(), tenItems()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if hm.beats != 10 {
		t.Errorf("beats = %d, want one per item", hm.beats)
	}

	// The single failure pushes depth to 1; the next success clears it.
	sawOne, endedZero := false, false
	for _, d := range hm.depths {
		if d == 1 {
			sawOne = true
		}
	}
	if n := len(hm.depths); n > 0 && hm.depths[n-1] == 0 {
		endedZero = true
	}
	if !sawOne || !endedZero {
		t.Errorf("queue depths = %v, want a 1 followed by a trailing 0", hm.depths)
	}
}

func TestProcessEscalatesAfterFailureStreak(t *testing.T) {
	// Items 3,4,5 fail persistently; all others succeed.
	items := tenItems()
	session := newFakeSession()
	for _, i := range []int{3, 4, 5} {
		session.failing[items[i].URL] = true
	}

	cp := &fakeCheckpoints{}
	esc := &fakeEscalator{}
	p := newTestProcessor(session, cp, esc)

	_, err := p.Process(context.Background(), newState(), items)
	if !errors.Is(err, ErrEscalated) {
		t.Fatalf("want ErrEscalated, got %v", err)
	}

	if !esc.called || esc.phase != domain.HealPhaseProcess {
		t.Fatalf("escalator called=%v phase=%s", esc.called, esc.phase)
	}

	// Each queued item was re-attempted exactly once after the pause.
	for _, i := range []int{3, 4, 5} {
		if got := session.attempts[items[i].URL]; got != 2 {
			t.Errorf("item %d attempts = %d, want 2 (initial + pause-retry)", i, got)
		}
	}
	// Items past the streak were never touched.
	if got := session.attempts[items[6].URL]; got != 0 {
		t.Errorf("item 6 attempts = %d, want 0", got)
	}

	// Partial-work file holds exactly items 3..9 with item 3 first.
	if !cp.partialWritten {
		t.Fatal("partial-work file not written")
	}
	if len(cp.partialWork) != 7 {
		t.Fatalf("partial work = %d items, want 7", len(cp.partialWork))
	}
	if cp.partialWork[0].URL != items[3].URL {
		t.Errorf("partial work starts with %s, want item 3", cp.partialWork[0].URL)
	}
	for k, item := range cp.partialWork {
		if item.URL != items[3+k].URL {
			t.Errorf("partial work[%d] = %s, want item %d", k, item.URL, 3+k)
		}
	}

	if esc.state.MasterIndexFile == "" {
		t.Error("escalated state missing partial-work pointer")
	}
	if esc.state.CurrentIndex != 0 {
		t.Errorf("escalated resume index = %d, want 0", esc.state.CurrentIndex)
	}
}

func TestProcessRecoversWhenPauseRetrySucceeds(t *testing.T) {
	items := tenItems()
	session := newFakeSession()
	for _, i := range []int{3, 4, 5} {
		session.failing[items[i].URL] = true
	}
	// Item 4 comes back after the pause and qualifies.
	session.recoverOnRetry[items[4].URL] = true
	session.qualify[items[4].URL] = true

	cp := &fakeCheckpoints{}
	esc := &fakeEscalator{}
	p := newTestProcessor(session, cp, esc)

	qualified, err := p.Process(context.Background(), newState(), items)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if esc.called {
		t.Error("escalated despite pause-retry success")
	}

	// Item 4's retry result was recorded, and the main loop carried on
	// through items 6..9.
	if len(qualified) != 1 || qualified[0].URL != items[4].URL {
		t.Errorf("qualified = %+v, want item 4 only", qualified)
	}
	for _, i := range []int{6, 7, 8, 9} {
		if session.attempts[items[i].URL] != 1 {
			t.Errorf("item %d not processed after recovery", i)
		}
	}
}

func TestProcessQualifiedCheckpointedImmediately(t *testing.T) {
	items := tenItems()
	session := newFakeSession()
	session.qualify[items[1].URL] = true
	session.qualify[items[7].URL] = true

	cp := &fakeCheckpoints{}
	esc := &fakeEscalator{}
	p := newTestProcessor(session, cp, esc)

	qualified, err := p.Process(context.Background(), newState(), items)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(qualified) != 2 {
		t.Fatalf("qualified = %d, want 2", len(qualified))
	}
	// One checkpoint write per qualified item, each with the full list
	// so far.
	if len(cp.qualifiedWrites) != 2 {
		t.Fatalf("qualified checkpoint writes = %d, want 2", len(cp.qualifiedWrites))
	}
	if len(cp.qualifiedWrites[0]) != 1 || len(cp.qualifiedWrites[1]) != 2 {
		t.Errorf("checkpoint growth wrong: %d then %d",
			len(cp.qualifiedWrites[0]), len(cp.qualifiedWrites[1]))
	}
}

func TestProcessSkipsInvalidIdentifiers(t *testing.T) {
	items := []domain.Link{
		{URL: "https://www.linkedin.com/in/unavailable"},
		{URL: ""},
		{URL: "https://www.linkedin.com/company/acme"},
		{URL: "https://www.linkedin.com/in/real-person"},
	}
	session := newFakeSession()
	cp := &fakeCheckpoints{}
	esc := &fakeEscalator{}
	p := newTestProcessor(session, cp, esc)

	if _, err := p.Process(context.Background(), newState(), items); err != nil {
		t.Fatalf("process: %v", err)
	}

	if session.attempts[items[3].URL] != 1 {
		t.Error("valid item not analyzed")
	}
	for _, u := range []string{items[0].URL, items[1].URL, items[2].URL} {
		if session.attempts[u] != 0 {
			t.Errorf("invalid identifier %q was analyzed", u)
		}
	}
}

func TestProcessResumesFromIndex(t *testing.T) {
	items := tenItems()
	session := newFakeSession()
	cp := &fakeCheckpoints{}
	esc := &fakeEscalator{}
	p := newTestProcessor(session, cp, esc)

	state := newState()
	state.CurrentIndex = 7

	if _, err := p.Process(context.Background(), state, items); err != nil {
		t.Fatalf("process: %v", err)
	}
	for i := 0; i < 7; i++ {
		if session.attempts[items[i].URL] != 0 {
			t.Errorf("item %d processed despite resume index 7", i)
		}
	}
	for i := 7; i < 10; i++ {
		if session.attempts[items[i].URL] != 1 {
			t.Errorf("item %d not processed", i)
		}
	}
}

func TestBuildPartialWork(t *testing.T) {
	items := tenItems()

	q := NewErrorQueue(3)
	q.Push(items[3])
	q.Push(items[4])
	q.Push(items[5])

	remaining := BuildPartialWork(q, items, 6)
	if len(remaining) != 7 || remaining[0].URL != items[3].URL {
		t.Errorf("remaining = %d items starting %s, want 7 starting item 3",
			len(remaining), remaining[0].URL)
	}

	// When the floor drops the first failing item, it is re-inserted.
	q2 := NewErrorQueue(3)
	q2.Push(items[8])
	q2.Push(items[9])
	q2.Push(items[0]) // contrived wraparound ordering
	remaining2 := BuildPartialWork(q2, items, 1)
	if remaining2[0].URL != items[8].URL {
		t.Errorf("first still-failing item not re-inserted: got %s", remaining2[0].URL)
	}
}

func TestErrorQueueBounded(t *testing.T) {
	q := NewErrorQueue(3)
	for i := 0; i < 5; i++ {
		q.Push(domain.Link{URL: fmt.Sprintf("u%d", i)})
	}
	if q.Len() != 3 {
		t.Errorf("len = %d, want capacity 3", q.Len())
	}
	if !q.Full() {
		t.Error("queue should be full")
	}
	q.Clear()
	if q.Len() != 0 || q.Full() {
		t.Error("clear did not empty the queue")
	}
}
