// Package control wires configuration, storage, the browser session, and
// the pipeline phases into one runnable application.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/prospector/internal/core/auth"
	"github.com/vietddude/prospector/internal/core/config"
	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/core/workflow"
	"github.com/vietddude/prospector/internal/infra/browser"
	"github.com/vietddude/prospector/internal/infra/checkpoint"
	redisclient "github.com/vietddude/prospector/internal/infra/redis"
	"github.com/vietddude/prospector/internal/infra/storage"
	"github.com/vietddude/prospector/internal/infra/storage/memory"
	"github.com/vietddude/prospector/internal/infra/storage/postgres"
	"github.com/vietddude/prospector/internal/pipeline/collector"
	"github.com/vietddude/prospector/internal/pipeline/healing"
	"github.com/vietddude/prospector/internal/pipeline/health"
	"github.com/vietddude/prospector/internal/pipeline/metrics"
	"github.com/vietddude/prospector/internal/pipeline/processor"
)

// JobParams are the per-job inputs a fresh run needs. Resumed runs ignore
// them and load everything from the state file instead.
type JobParams struct {
	JobID          string
	SearchURL      string
	Credential     string
	BearerToken    string
	ProcessingList string
	Keywords       string
}

// Config holds the application configuration.
type Config struct {
	App *config.AppConfig
	Job JobParams

	// StateFile is set when this process is a spawned recovery run.
	StateFile string
}

// Prospector is the main application struct that manages the pipeline
// lifecycle.
type Prospector struct {
	cfg          Config
	state        *domain.WorkflowState
	checkpoints  *checkpoint.Store
	orchestrator *healing.Orchestrator
	contactRepo  storage.ContactRepository
	runRepo      storage.RunRepository
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewProspector creates a new Prospector instance with all dependencies
// initialized and the job state restored or freshly built.
func NewProspector(cfg Config) (*Prospector, error) {
	app := cfg.App

	// 1. Checkpoint store and healing orchestrator
	store, err := checkpoint.NewStore(app.Checkpoint.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to init checkpoint store: %w", err)
	}

	orchestrator := healing.New(healing.Config{
		PublicKey:    app.Crypto.PublicKey,
		MaxRecursion: app.Pipeline.MaxRecursion,
	}, store, nil, slog.Default())

	// 2. Restore or build the job state
	var state *domain.WorkflowState
	if cfg.StateFile != "" {
		worker := healing.NewWorker(app.Crypto.PrivateKeyPath, store, slog.Default())
		state, err = worker.Load(cfg.StateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load recovery state: %w", err)
		}
	} else {
		state = workflow.NewInitialState(workflow.Params{
			JobID:          cfg.Job.JobID,
			SearchURL:      cfg.Job.SearchURL,
			Credential:     cfg.Job.Credential,
			BearerToken:    cfg.Job.BearerToken,
			ProcessingList: domain.ProcessingList(cfg.Job.ProcessingList),
			BatchSize:      app.Pipeline.BatchSize,
		})
		if err := workflow.Validate(state); err != nil {
			return nil, err
		}
	}

	// 3. Verify the bearer token before any browser work starts
	if app.Auth.Secret != "" {
		if _, err := auth.NewVerifier(app.Auth.Secret).Verify(state.BearerToken); err != nil {
			return nil, fmt.Errorf("bearer token rejected: %w", err)
		}
	}

	// 4. Initialize Storage
	var contactRepo storage.ContactRepository
	var runRepo storage.RunRepository
	var db *postgres.DB

	if app.Database.URL != "" {
		db, err = postgres.NewDB(context.Background(), app.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		contactRepo = postgres.NewContactRepo(db)
		runRepo = postgres.NewRunRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		mem := memory.NewMemoryStorage()
		contactRepo = memory.NewContactRepo(mem)
		runRepo = memory.NewRunRepo(mem)
		slog.Info("Using Memory storage")
	}

	// 5. Optional Redis result sharing
	var redisClient *redisclient.Client
	if app.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(app.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, result sharing disabled", "error", err)
			redisClient = nil
		}
	}

	// 6. Health monitor and server
	healthMon := health.NewMonitor()
	healthServer := health.NewServer(healthMon, app.Server.Port)

	return &Prospector{
		cfg:          cfg,
		state:        state,
		checkpoints:  store,
		orchestrator: orchestrator,
		contactRepo:  contactRepo,
		runRepo:      runRepo,
		healthMon:    healthMon,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// State exposes the restored job state, mainly for logging at startup.
func (p *Prospector) State() *domain.WorkflowState {
	return p.state
}

// Start runs the pipeline to completion. It returns nil both on a normal
// finish and when the run was escalated to a spawned recovery process.
func (p *Prospector) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := p.healthServer.Start(); err != nil {
			p.log.Debug("Health server stopped", "error", err)
		}
	}()

	state := p.state

	run := &domain.JobRun{
		ID:             uuid.New().String(),
		JobID:          state.JobID,
		RecursionCount: state.RecursionCount,
		Phase:          phaseLabel(state),
		StartedAt:      time.Now().UTC(),
	}
	if err := p.runRepo.Save(ctx, run); err != nil {
		p.log.Warn("Failed to record job run", "error", err)
	}
	metrics.RecursionCount.WithLabelValues(state.JobID).Set(float64(state.RecursionCount))

	outcome, err := p.runPipeline(ctx, state)

	if ferr := p.runRepo.Finish(ctx, run.ID, outcome); ferr != nil {
		p.log.Warn("Failed to finish job run", "error", ferr)
	}
	p.healthMon.Remove(state.JobID)
	return err
}

// runPipeline drives collect then process, honoring the restored phase.
func (p *Prospector) runPipeline(ctx context.Context, state *domain.WorkflowState) (string, error) {
	app := p.cfg.App

	session, err := browser.NewRodSession(ctx, browser.Config{
		SearchURL:      state.SearchURL,
		Credential:     state.Credential,
		Headless:       app.Browser.Headless,
		PageTimeout:    app.Browser.PageTimeout,
		ActivityWindow: app.Browser.ActivityWindow,
	}, p.log)
	if err != nil {
		return "failed", fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			p.log.Warn("Browser close failed", "error", cerr)
		}
	}()

	filters := browser.Filters{
		Keywords: p.cfg.Job.Keywords,
		Network:  state.CurrentProcessingList,
	}

	var items []domain.Link

	// A process-phase recovery resumes straight from its work file; every
	// other entry point harvests first.
	if state.HealPhase == domain.HealPhaseProcess && state.MasterIndexFile != "" {
		items, err = p.checkpoints.ReadLinks(state.MasterIndexFile)
		if err != nil {
			return "failed", fmt.Errorf("failed to load partial work: %w", err)
		}
		p.log.Info("Resuming processing from partial work",
			"job", state.JobID, "items", len(items), "index", state.CurrentIndex)
	} else {
		p.healthMon.Heartbeat(state.JobID, "collect", state.RecursionCount, 0, 0)
		p.publishProgress(ctx, state)

		col := collector.New(collector.Config{
			StartPage: app.Pipeline.StartPage,
			EndPage:   app.Pipeline.EndPage,
			PageDelay: app.Pipeline.PageDelay,
			Filters:   filters,
		}, session, p.checkpoints, p.orchestrator, p.log)
		col.SetHealth(p.healthMon)

		items, err = col.Harvest(ctx, state)
		if errors.Is(err, collector.ErrEscalated) {
			p.log.Info("Collection escalated, recovery process owns the job", "job", state.JobID)
			return "escalated", nil
		}
		if err != nil {
			return "failed", fmt.Errorf("harvest failed: %w", err)
		}

		// Processing always starts at the head of a fresh harvest.
		state.CurrentIndex = 0
		state.HealPhase = domain.HealPhaseNone
	}

	p.healthMon.Heartbeat(state.JobID, "process", state.RecursionCount, state.CurrentIndex, len(items))
	p.publishProgress(ctx, state)

	proc := processor.New(processor.Config{
		PauseWindow: app.Pipeline.PauseWindow,
		ItemDelay:   app.Pipeline.ItemDelay,
	}, session, p.checkpoints, p.orchestrator, p.log)
	proc.SetHealth(p.healthMon)

	qualified, err := proc.Process(ctx, state, items)
	if errors.Is(err, processor.ErrEscalated) {
		p.log.Info("Processing escalated, recovery process owns the job", "job", state.JobID)
		return "escalated", nil
	}
	if err != nil {
		return "failed", fmt.Errorf("processing failed: %w", err)
	}

	if err := p.persistResults(ctx, state.JobID, qualified); err != nil {
		return "failed", err
	}
	p.publishProgress(ctx, state)

	p.log.Info("Job completed",
		"job", state.JobID,
		"items", len(items),
		"qualified", len(qualified),
		"recursion", state.RecursionCount)
	return "completed", nil
}

// publishProgress pushes a progress snapshot for external consumers.
// Best-effort: result sharing never blocks or fails the pipeline.
func (p *Prospector) publishProgress(ctx context.Context, state *domain.WorkflowState) {
	if p.redisClient == nil {
		return
	}
	snapshot := workflow.ProgressSummary(state)
	if err := p.redisClient.PutProgress(ctx, state.JobID, snapshot, time.Hour); err != nil {
		p.log.Debug("Failed to publish progress", "job", state.JobID, "error", err)
	}
}

func (p *Prospector) persistResults(ctx context.Context, jobID string, qualified []domain.QualifiedContact) error {
	batch := make([]*domain.QualifiedContact, len(qualified))
	for i := range qualified {
		batch[i] = &qualified[i]
	}
	if err := p.contactRepo.SaveBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to persist qualified contacts: %w", err)
	}

	if p.redisClient != nil {
		if err := p.redisClient.PutQualified(ctx, jobID, qualified); err != nil {
			p.log.Warn("Failed to publish results to Redis", "error", err)
		}
	}
	return nil
}

// Stop stops the prospector.
func (p *Prospector) Stop(ctx context.Context) error {
	p.log.Info("Stopping Prospector...")

	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			p.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.log.Warn("Failed to close database", "error", err)
		}
	}

	// Stop Health Server
	return p.healthServer.Stop(ctx)
}

func phaseLabel(state *domain.WorkflowState) string {
	if state.HealPhase != domain.HealPhaseNone {
		return string(state.HealPhase)
	}
	return "collect"
}
