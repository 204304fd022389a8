// Package healing converts an escalation request into a durable, sealed
// checkpoint and a freshly spawned recovery process, and lets that process
// read the checkpoint back. Healing is process-level isolation: the browser
// session being abandoned may be unrecoverable in-process.
package healing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/core/envelope"
	"github.com/vietddude/prospector/internal/core/workflow"
	"github.com/vietddude/prospector/internal/pipeline/metrics"
)

// DefaultMaxRecursion bounds the crash-retry-crash cycle.
const DefaultMaxRecursion = 3

// StateWriter is the slice of the checkpoint store the orchestrator uses.
type StateWriter interface {
	WriteState(state *domain.WorkflowState) (string, error)
	DeleteState(path string) error
}

// SpawnFunc starts the recovery process for a state file and returns its
// PID. Injectable so tests never fork.
type SpawnFunc func(ctx context.Context, stateFile string) (int, error)

// Config configures the orchestrator.
type Config struct {
	// PublicKey is the base64 X25519 public key secrets are sealed to.
	PublicKey string

	// MaxRecursion is the healing ceiling (DefaultMaxRecursion when 0).
	MaxRecursion int
}

// Orchestrator owns the escalation protocol.
type Orchestrator struct {
	cfg    Config
	states StateWriter
	spawn  SpawnFunc
	log    *slog.Logger
}

// New creates an orchestrator. A nil spawn uses the default self-exec
// spawner.
func New(cfg Config, states StateWriter, spawn SpawnFunc, log *slog.Logger) *Orchestrator {
	if cfg.MaxRecursion <= 0 {
		cfg.MaxRecursion = DefaultMaxRecursion
	}
	if spawn == nil {
		spawn = spawnSelf
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{cfg: cfg, states: states, spawn: spawn, log: log}
}

// Escalate derives the healing state, seals every secret field, writes the
// state file atomically, and spawns the recovery process. The ceiling check
// sits next to the single recursion-count increment so the two can never
// drift apart. Plaintext secrets are never written to disk.
func (o *Orchestrator) Escalate(ctx context.Context, state *domain.WorkflowState, phase domain.HealPhase, reason string) error {
	next := workflow.NewHealingState(state, workflow.HealingParams{
		Phase:           phase,
		Reason:          reason,
		CurrentBatch:    state.CurrentBatch,
		CurrentIndex:    state.CurrentIndex,
		MasterIndexFile: state.MasterIndexFile,
	})

	if next.RecursionCount > o.cfg.MaxRecursion {
		return fmt.Errorf("%w: attempt %d exceeds ceiling %d",
			domain.ErrRecursionCeiling, next.RecursionCount, o.cfg.MaxRecursion)
	}

	if err := o.sealSecrets(next); err != nil {
		return err
	}

	path, err := o.states.WriteState(next)
	if err != nil {
		return fmt.Errorf("healing: persist state: %w", err)
	}
	metrics.CheckpointWrites.WithLabelValues(next.JobID, "state").Inc()
	metrics.Escalations.WithLabelValues(next.JobID, string(phase)).Inc()
	metrics.RecursionCount.WithLabelValues(next.JobID).Set(float64(next.RecursionCount))

	pid, err := o.spawn(ctx, path)
	if err != nil {
		// Do not leave an orphaned sealed checkpoint behind.
		if rmErr := o.states.DeleteState(path); rmErr != nil {
			o.log.Warn("orphaned state file left behind", "path", path, "error", rmErr)
		}
		return fmt.Errorf("healing: spawn recovery process: %w", err)
	}

	o.log.Warn("recovery process spawned",
		"job", next.JobID,
		"pid", pid,
		"recursion", next.RecursionCount,
		"phase", phase,
		"reason", reason)
	return nil
}

func (o *Orchestrator) sealSecrets(state *domain.WorkflowState) error {
	if state.Credential != "" && !envelope.IsSealed(state.Credential) {
		sealed, err := envelope.Seal(o.cfg.PublicKey, state.Credential)
		if err != nil {
			return fmt.Errorf("healing: seal credential: %w", err)
		}
		state.Credential = sealed
	}
	if state.BearerToken != "" && !envelope.IsSealed(state.BearerToken) {
		sealed, err := envelope.Seal(o.cfg.PublicKey, state.BearerToken)
		if err != nil {
			return fmt.Errorf("healing: seal bearer token: %w", err)
		}
		state.BearerToken = sealed
	}
	return nil
}

// spawnSelf re-executes the running binary with the heal subcommand. The
// child is fully detached; the parent stops touching the checkpoint file
// the moment the spawn returns.
func spawnSelf(ctx context.Context, stateFile string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(exe, "heal", stateFile)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	// Reap in the background so the child never zombifies if the parent
	// lingers.
	go cmd.Wait()
	return pid, nil
}
