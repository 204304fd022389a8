package healing

import (
	"fmt"
	"log/slog"

	"github.com/vietddude/prospector/internal/core/domain"
	"github.com/vietddude/prospector/internal/core/envelope"
	"github.com/vietddude/prospector/internal/core/workflow"
)

// StateReader is the slice of the checkpoint store the worker uses.
type StateReader interface {
	ReadState(path string) (*domain.WorkflowState, error)
	DeleteState(path string) error
}

// Worker is the recovery-process side of the handoff: it reads the state
// file, opens the sealed secrets, and deletes the file.
type Worker struct {
	privateKeyPath string
	states         StateReader
	log            *slog.Logger
}

// NewWorker creates a worker.
func NewWorker(privateKeyPath string, states StateReader, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{privateKeyPath: privateKeyPath, states: states, log: log}
}

// Load reads and validates the checkpoint, unseals every secret field, and
// deletes the state file. Deletion is best-effort: the file holds only
// ciphertext, so a failed delete is logged and not fatal. Decryption
// failure of a required secret is fatal: resuming without credentials is
// pointless.
func (w *Worker) Load(path string) (*domain.WorkflowState, error) {
	state, err := w.states.ReadState(path)
	if err != nil {
		return nil, fmt.Errorf("healing: read state file: %w", err)
	}
	if err := workflow.Validate(state); err != nil {
		return nil, fmt.Errorf("healing: checkpoint invalid: %w", err)
	}

	// Only non-secret fields go to the log.
	w.log.Info("resuming from checkpoint",
		"job", state.JobID,
		"recursion", state.RecursionCount,
		"phase", state.HealPhase,
		"reason", state.HealReason,
		"list", state.CurrentProcessingList,
		"batch", state.CurrentBatch,
		"index", state.CurrentIndex)

	if err := w.unsealSecrets(state); err != nil {
		return nil, err
	}

	if err := w.states.DeleteState(path); err != nil {
		w.log.Warn("state file deletion failed", "path", path, "error", err)
	}

	return state, nil
}

func (w *Worker) unsealSecrets(state *domain.WorkflowState) error {
	if envelope.IsSealed(state.Credential) {
		plain, err := envelope.Unseal(w.privateKeyPath, state.Credential)
		if err != nil {
			return fmt.Errorf("healing: unseal credential: %w", err)
		}
		state.Credential = plain
	}
	if envelope.IsSealed(state.BearerToken) {
		plain, err := envelope.Unseal(w.privateKeyPath, state.BearerToken)
		if err != nil {
			return fmt.Errorf("healing: unseal bearer token: %w", err)
		}
		state.BearerToken = plain
	}
	return nil
}
