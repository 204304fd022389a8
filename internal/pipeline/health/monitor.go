package health

import (
	"context"
	"sync"
	"time"
)

// Stall thresholds. A job that hasn't reported progress within the degraded
// window is likely stuck behind a slow page; past the critical window the
// browser session is presumed wedged.
const (
	stallDegraded = 2 * time.Minute
	stallCritical = 10 * time.Minute
)

type jobBeat struct {
	phase      string
	recursion  int
	queueDepth int
	itemsDone  int
	itemsTotal int
	lastBeat   time.Time
}

// Monitor aggregates health status reported by the running pipeline.
type Monitor struct {
	jobs map[string]*jobBeat
	mu   sync.RWMutex

	now func() time.Time
}

// NewMonitor creates a new health monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		jobs: make(map[string]*jobBeat),
		now:  time.Now,
	}
}

// Heartbeat records forward progress for a job. The pipeline calls this
// after every page fetch and every processed item.
func (m *Monitor) Heartbeat(jobID, phase string, recursion, itemsDone, itemsTotal int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	beat := m.jobs[jobID]
	if beat == nil {
		beat = &jobBeat{}
		m.jobs[jobID] = beat
	}
	beat.phase = phase
	beat.recursion = recursion
	beat.itemsDone = itemsDone
	beat.itemsTotal = itemsTotal
	beat.lastBeat = m.now()
}

// SetQueueDepth records the current error-queue depth for a job.
func (m *Monitor) SetQueueDepth(jobID string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if beat := m.jobs[jobID]; beat != nil {
		beat.queueDepth = depth
	}
}

// Remove drops a finished job from the report.
func (m *Monitor) Remove(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
}

// CheckHealth builds a health report for all tracked jobs.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]JobHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := make(map[string]JobHealth, len(m.jobs))
	now := m.now()

	for jobID, beat := range m.jobs {
		stall := now.Sub(beat.lastBeat)
		health := JobHealth{
			JobID:          jobID,
			Status:         StatusHealthy,
			Phase:          beat.phase,
			RecursionCount: beat.recursion,
			StallSeconds:   stall.Seconds(),
			QueueDepth:     beat.queueDepth,
			ItemsDone:      beat.itemsDone,
			ItemsTotal:     beat.itemsTotal,
		}

		if stall > stallCritical {
			health.Status = StatusCritical
		} else if stall > stallDegraded || beat.queueDepth > 0 {
			health.Status = StatusDegraded
		}

		report[jobID] = health
	}

	return report
}
