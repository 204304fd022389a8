// Package processor implements the per-item contact-analysis loop: bounded
// error queue, pause-and-retry, immediate qualified-result checkpointing,
// and escalation into a partial-work file when a failure streak survives
// the pause window.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/infra/browser"
	"github.com/vietddude/prospector/internal/pipeline/classify"
	"github.com/vietddude/prospector/internal/pipeline/metrics"
)

// DefaultPauseWindow is the in-process cool-down before re-attempting a
// full error queue.
const DefaultPauseWindow = 300 * time.Second

// invalidIdentifier matches profile links that are known to be dead ends:
// never retried, never escalated.
var invalidIdentifier = regexp.MustCompile(`(?i)(^$|/in/unavailable|/in/ACw|linkedin\.com/company/)`)

// Checkpoints is the slice of the checkpoint store the processor uses.
type Checkpoints interface {
	WriteQualified(jobID string, contacts []domain.QualifiedContact) (string, error)
	WritePartialWork(jobID string, links []domain.Link) (string, error)
}

// Escalator hands a job to the healing orchestrator.
type Escalator interface {
	Escalate(ctx context.Context, state *domain.WorkflowState, phase domain.HealPhase, reason string) error
}

// Health receives a liveness signal per item and the current error-queue
// depth.
type Health interface {
	Heartbeat(jobID, phase string, recursion, itemsDone, itemsTotal int)
	SetQueueDepth(jobID string, depth int)
}

// Config configures one processing run.
type Config struct {
	// PauseWindow overrides DefaultPauseWindow (tests set milliseconds).
	PauseWindow time.Duration

	// ItemDelay paces consecutive analyses.
	ItemDelay time.Duration
}

// Processor drives the item loop. Strictly sequential within one job.
type Processor struct {
	cfg         Config
	session     browser.Session
	checkpoints Checkpoints
	escalator   Escalator
	health      Health
	log         *slog.Logger
}

// New creates a processor.
func New(cfg Config, session browser.Session, cp Checkpoints, esc Escalator, log *slog.Logger) *Processor {
	if cfg.PauseWindow <= 0 {
		cfg.PauseWindow = DefaultPauseWindow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Processor{cfg: cfg, session: session, checkpoints: cp, escalator: esc, log: log}
}

// SetHealth attaches a liveness monitor. Optional.
func (p *Processor) SetHealth(h Health) {
	p.health = h
}

func (p *Processor) beat(state *domain.WorkflowState, done, total int) {
	if p.health != nil {
		p.health.Heartbeat(state.JobID, string(domain.HealPhaseProcess),
			state.RecursionCount, done, total)
	}
}

func (p *Processor) reportQueue(state *domain.WorkflowState, depth int) {
	if p.health != nil {
		p.health.SetQueueDepth(state.JobID, depth)
	}
}

// ErrEscalated is returned when the run was handed off to a recovery
// process; the main loop terminates without a final result.
var ErrEscalated = fmt.Errorf("processing escalated to healing")

// Process iterates items from the state's resume index, returning the
// qualified list when the end of the item list is reached with no pending
// escalation.
func (p *Processor) Process(ctx context.Context, state *domain.WorkflowState, items []domain.Link) ([]domain.QualifiedContact, error) {
	queue := NewErrorQueue(QueueCapacity)
	var qualified []domain.QualifiedContact

	start := state.CurrentIndex
	if start < 0 {
		start = 0
	}

	p.log.Info("processing starting",
		"job", state.JobID, "items", len(items), "resume_index", start)

	for i := start; i < len(items); i++ {
		if err := p.pace(ctx); err != nil {
			return qualified, err
		}

		item := items[i]
		if invalidIdentifier.MatchString(item.URL) {
			metrics.ItemsProcessed.WithLabelValues(state.JobID, "skipped").Inc()
			p.log.Debug("skipping invalid identifier", "job", state.JobID, "url", item.URL)
			continue
		}

		result, err := p.session.AnalyzeItem(ctx, item, state.BearerToken)
		p.beat(state, i+1, len(items))
		if err == nil {
			queue.Clear()
			p.reportQueue(state, 0)
			qualified = p.record(state, result, qualified)
			state.CurrentIndex = i + 1
			continue
		}

		cls := classify.Categorize(err)
		metrics.ErrorsClassified.WithLabelValues(state.JobID, string(cls.Category)).Inc()
		metrics.ItemsProcessed.WithLabelValues(state.JobID, "failed").Inc()
		p.log.Warn("item analysis failed",
			"job", state.JobID, "index", i, "category", cls.Category, "error", err)

		queue.Push(item)
		p.reportQueue(state, queue.Len())
		state.CurrentIndex = i + 1

		if !queue.Full() {
			continue
		}

		recovered, err := p.pauseAndRetry(ctx, state, queue, &qualified)
		if err != nil {
			return qualified, err
		}
		if recovered {
			queue.Clear()
			p.reportQueue(state, 0)
			continue
		}

		// All re-attempts failed: fold the queue into a partial-work
		// file and hand off.
		return qualified, p.escalate(ctx, state, queue, items, i+1)
	}

	p.log.Info("processing complete", "job", state.JobID, "qualified", len(qualified))
	return qualified, nil
}

// pauseAndRetry waits out the cool-down window and re-attempts exactly the
// queued failing items once, in order. Any single success counts as
// recovery.
func (p *Processor) pauseAndRetry(ctx context.Context, state *domain.WorkflowState, queue *ErrorQueue, qualified *[]domain.QualifiedContact) (bool, error) {
	metrics.PauseRetries.WithLabelValues(state.JobID).Inc()
	p.log.Warn("error queue full, pausing",
		"job", state.JobID, "window", p.cfg.PauseWindow, "queued", queue.Len())

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(p.cfg.PauseWindow):
	}

	recovered := false
	for _, item := range queue.Items() {
		result, err := p.session.AnalyzeItem(ctx, item, state.BearerToken)
		if err != nil {
			p.log.Warn("pause-retry still failing", "job", state.JobID, "url", item.URL, "error", err)
			continue
		}
		recovered = true
		*qualified = p.record(state, result, *qualified)
	}
	return recovered, nil
}

// record appends a qualified result and checkpoints the qualified list
// immediately so partial results survive a crash mid-batch.
func (p *Processor) record(state *domain.WorkflowState, result *domain.AnalysisResult, qualified []domain.QualifiedContact) []domain.QualifiedContact {
	if result == nil || !result.Qualified {
		metrics.ItemsProcessed.WithLabelValues(state.JobID, "unqualified").Inc()
		return qualified
	}

	metrics.ItemsProcessed.WithLabelValues(state.JobID, "qualified").Inc()
	qualified = append(qualified, domain.QualifiedContact{
		JobID:       state.JobID,
		URL:         result.Link.URL,
		Name:        result.Link.Name,
		Headline:    result.Link.Headline,
		QualifiedAt: time.Now().UTC(),
	})

	if _, err := p.checkpoints.WriteQualified(state.JobID, qualified); err != nil {
		// The in-memory list is still intact; the next success retries
		// the write.
		p.log.Error("qualified checkpoint failed", "job", state.JobID, "error", err)
		return qualified
	}
	metrics.CheckpointWrites.WithLabelValues(state.JobID, "qualified").Inc()
	return qualified
}

func (p *Processor) escalate(ctx context.Context, state *domain.WorkflowState, queue *ErrorQueue, items []domain.Link, nextIndex int) error {
	remaining := BuildPartialWork(queue, items, nextIndex)

	workFile, err := p.checkpoints.WritePartialWork(state.JobID, remaining)
	if err != nil {
		return fmt.Errorf("processor: write partial work: %w", err)
	}
	metrics.CheckpointWrites.WithLabelValues(state.JobID, "partial_work").Inc()

	state.MasterIndexFile = workFile
	state.CurrentIndex = 0

	reason := fmt.Sprintf("%d consecutive item failures survived pause-retry", queue.Len())
	p.log.Warn("escalating to healing",
		"job", state.JobID, "remaining", len(remaining), "work_file", workFile)

	if err := p.escalator.Escalate(ctx, state, domain.HealPhaseProcess, reason); err != nil {
		return fmt.Errorf("processor: escalate: %w", err)
	}
	return ErrEscalated
}

func (p *Processor) pace(ctx context.Context) error {
	if p.cfg.ItemDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.cfg.ItemDelay):
		return nil
	}
}
