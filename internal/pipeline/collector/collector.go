// Package collector implements the paginated link-harvesting loop with
// durable per-page checkpoints and empty-result healing triggers.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/infra/browser"
	"github.com/vietddude/prospector/internal/pipeline/classify"
	"github.com/vietddude/prospector/internal/pipeline/metrics"
)

// emptyPageThreshold is how many consecutive empty pages signal a transient
// block rather than genuine exhaustion. Real exhaustion is expected only at
// the configured end boundary.
const emptyPageThreshold = 3

// Checkpoints is the slice of the checkpoint store the collector uses.
type Checkpoints interface {
	ReadLinks(path string) ([]domain.Link, error)
	WriteLinks(jobID string, links []domain.Link) (string, error)
}

// Escalator hands a job to the healing orchestrator.
type Escalator interface {
	Escalate(ctx context.Context, state *domain.WorkflowState, phase domain.HealPhase, reason string) error
}

// Health receives a liveness signal after every page attempt.
type Health interface {
	Heartbeat(jobID, phase string, recursion, itemsDone, itemsTotal int)
}

// Config configures one harvesting run.
type Config struct {
	StartPage int
	EndPage   int

	// PageDelay paces consecutive page fetches to mimic human browsing.
	PageDelay time.Duration

	Filters browser.Filters
}

// Collector drives the page loop. It is strictly sequential; no two pages
// are ever fetched concurrently within one job.
type Collector struct {
	cfg         Config
	session     browser.Session
	checkpoints Checkpoints
	escalator   Escalator
	health      Health
	log         *slog.Logger
}

// New creates a collector.
func New(cfg Config, session browser.Session, cp Checkpoints, esc Escalator, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	if cfg.StartPage < 1 {
		cfg.StartPage = 1
	}
	return &Collector{cfg: cfg, session: session, checkpoints: cp, escalator: esc, log: log}
}

// SetHealth attaches a liveness monitor. Optional.
func (c *Collector) SetHealth(h Health) {
	c.health = h
}

func (c *Collector) beat(state *domain.WorkflowState, page int) {
	if c.health != nil {
		c.health.Heartbeat(state.JobID, string(domain.HealPhaseCollect),
			state.RecursionCount, page, c.cfg.EndPage)
	}
}

// ErrEscalated is returned when the run was handed off to a recovery
// process; the caller must not treat the partial set as final.
var ErrEscalated = fmt.Errorf("collection escalated to healing")

// Harvest runs the page loop from the state's cursor to the configured end
// page and returns the accumulated link set. Page-level errors are absorbed
// as noise; three consecutive empty pages before the end boundary escalate.
func (c *Collector) Harvest(ctx context.Context, state *domain.WorkflowState) ([]domain.Link, error) {
	links, err := c.checkpoints.ReadLinks(state.MasterIndexFile)
	if err != nil {
		return nil, fmt.Errorf("collector: load checkpoint: %w", err)
	}

	startPage := c.cfg.StartPage
	if state.CurrentIndex > startPage {
		startPage = state.CurrentIndex
	}

	c.log.Info("harvest starting",
		"job", state.JobID,
		"from_page", startPage,
		"to_page", c.cfg.EndPage,
		"resumed_links", len(links))

	emptyStreak := 0
	for p := startPage; p <= c.cfg.EndPage; p++ {
		if err := c.pause(ctx); err != nil {
			return links, err
		}

		pageLinks, err := c.session.FetchPage(ctx, p, c.cfg.Filters)
		// Even a failed fetch is forward motion; the monitor only needs
		// to know the loop has not wedged.
		c.beat(state, p)
		if err != nil {
			// Page-level errors are tolerated; only the processor
			// enforces a hard consecutive-failure ceiling.
			cls := classify.Categorize(err)
			metrics.ErrorsClassified.WithLabelValues(state.JobID, string(cls.Category)).Inc()
			c.log.Warn("page fetch failed, skipping",
				"job", state.JobID, "page", p, "category", cls.Category, "error", err)
			continue
		}

		metrics.PagesHarvested.WithLabelValues(state.JobID).Inc()

		if len(pageLinks) == 0 {
			emptyStreak++
			metrics.EmptyPages.WithLabelValues(state.JobID).Inc()
			c.log.Debug("empty page", "job", state.JobID, "page", p, "streak", emptyStreak)

			if emptyStreak >= emptyPageThreshold && p < c.cfg.EndPage {
				resumePage := p - emptyPageThreshold + 1
				c.log.Warn("empty-page streak, escalating",
					"job", state.JobID, "resume_page", resumePage)

				state.CurrentIndex = resumePage
				reason := fmt.Sprintf("%d consecutive empty pages at page %d", emptyPageThreshold, p)
				if err := c.escalator.Escalate(ctx, state, domain.HealPhaseCollect, reason); err != nil {
					return links, fmt.Errorf("collector: escalate: %w", err)
				}
				return links, ErrEscalated
			}
			continue
		}

		emptyStreak = 0
		links = append(links, pageLinks...)

		// Checkpoint strictly after the page's work is complete.
		path, err := c.checkpoints.WriteLinks(state.JobID, links)
		if err != nil {
			return links, fmt.Errorf("collector: checkpoint page %d: %w", p, err)
		}
		metrics.CheckpointWrites.WithLabelValues(state.JobID, "links").Inc()
		state.MasterIndexFile = path
		state.CurrentIndex = p + 1
	}

	c.log.Info("harvest complete", "job", state.JobID, "links", len(links))
	return links, nil
}

func (c *Collector) pause(ctx context.Context) error {
	if c.cfg.PageDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.PageDelay):
		return nil
	}
}
