package health

import (
	"context"
	"testing"
	"time"
)

func newTestMonitor(now *time.Time) *Monitor {
	m := NewMonitor()
	m.now = func() time.Time { return *now }
	return m
}

func TestCheckHealthFreshJobIsHealthy(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(&now)

	m.Heartbeat("job-1", "collect", 0, 5, 100)

	report := m.CheckHealth(context.Background())
	job, ok := report["job-1"]
	if !ok {
		t.Fatal("expected job-1 in report")
	}
	if job.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", job.Status)
	}
	if job.Phase != "collect" || job.ItemsDone != 5 || job.ItemsTotal != 100 {
		t.Errorf("unexpected job fields: %+v", job)
	}
}

func TestCheckHealthStalledJobDegradesThenCritical(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(&now)

	m.Heartbeat("job-1", "process", 1, 40, 100)

	now = now.Add(stallDegraded + time.Second)
	report := m.CheckHealth(context.Background())
	if got := report["job-1"].Status; got != StatusDegraded {
		t.Errorf("expected degraded after stall, got %s", got)
	}

	now = now.Add(stallCritical)
	report = m.CheckHealth(context.Background())
	if got := report["job-1"].Status; got != StatusCritical {
		t.Errorf("expected critical after long stall, got %s", got)
	}
}

func TestCheckHealthProgressingJobStaysHealthy(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(&now)

	// A multi-hour phase that keeps reporting per-page progress must never
	// trip the stall thresholds.
	for page := 1; page <= 120; page++ {
		m.Heartbeat("job-1", "collect", 0, page, 120)
		now = now.Add(time.Minute)

		report := m.CheckHealth(context.Background())
		if got := report["job-1"].Status; got != StatusHealthy {
			t.Fatalf("page %d: expected healthy, got %s", page, got)
		}
	}
}

func TestCheckHealthQueuedErrorsDegrade(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(&now)

	m.Heartbeat("job-1", "process", 0, 10, 100)
	m.SetQueueDepth("job-1", 2)

	report := m.CheckHealth(context.Background())
	job := report["job-1"]
	if job.Status != StatusDegraded {
		t.Errorf("expected degraded with queued errors, got %s", job.Status)
	}
	if job.QueueDepth != 2 {
		t.Errorf("expected queue depth 2, got %d", job.QueueDepth)
	}
}

func TestRemoveDropsJob(t *testing.T) {
	now := time.Now()
	m := newTestMonitor(&now)

	m.Heartbeat("job-1", "collect", 0, 0, 0)
	m.Remove("job-1")

	if report := m.CheckHealth(context.Background()); len(report) != 0 {
		t.Errorf("expected empty report, got %v", report)
	}
}
