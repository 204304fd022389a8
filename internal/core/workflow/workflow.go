// Package workflow builds, validates, and merges the WorkflowState record
// shared across processes. All transforms are pure; persistence lives in
// infra/checkpoint.
package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/prospector/internal/core/domain"
)

// DefaultBatchSize is applied when a job does not specify one.
const DefaultBatchSize = 100

// Params are the caller-supplied inputs for a fresh job.
type Params struct {
	JobID          string
	SearchURL      string
	Credential     string
	BearerToken    string
	ProcessingList domain.ProcessingList
	BatchSize      int
}

// HealingParams carries only the fields an escalation actually changed.
type HealingParams struct {
	Phase           domain.HealPhase
	Reason          string
	CurrentBatch    int
	CurrentIndex    int
	MasterIndexFile string
}

// NewInitialState creates the state record for a job start, applying
// defaults for everything the caller left unset.
func NewInitialState(p Params) *domain.WorkflowState {
	if p.JobID == "" {
		p.JobID = uuid.New().String()
	}
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.ProcessingList == "" {
		p.ProcessingList = domain.ListAll
	}

	return &domain.WorkflowState{
		SchemaVersion:         domain.SchemaVersion,
		JobID:                 p.JobID,
		SearchURL:             p.SearchURL,
		Credential:            p.Credential,
		BearerToken:           p.BearerToken,
		RecursionCount:        0,
		CurrentProcessingList: p.ProcessingList,
		CurrentBatch:          0,
		CurrentIndex:          0,
		BatchSize:             p.BatchSize,
		Timestamp:             time.Now().UTC(),
	}
}

// NewHealingState derives the next state for an escalation: recursion count
// is incremented at this single call site, only the fields the escalation
// changed are overlaid, and the timestamp is refreshed.
func NewHealingState(existing *domain.WorkflowState, hp HealingParams) *domain.WorkflowState {
	next := *existing
	next.RecursionCount = existing.RecursionCount + 1
	next.HealPhase = hp.Phase
	next.HealReason = hp.Reason
	next.CurrentBatch = hp.CurrentBatch
	next.CurrentIndex = hp.CurrentIndex
	if hp.MasterIndexFile != "" {
		next.MasterIndexFile = hp.MasterIndexFile
	}
	next.Timestamp = time.Now().UTC()
	return &next
}

// Validate checks every state invariant. Any violation yields
// domain.ErrInvalidState with a description of the broken field.
func Validate(s *domain.WorkflowState) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", domain.ErrInvalidState)
	}
	if s.JobID == "" {
		return fmt.Errorf("%w: empty job_id", domain.ErrInvalidState)
	}
	if s.RecursionCount < 0 {
		return fmt.Errorf("%w: negative recursion_count", domain.ErrInvalidState)
	}
	if s.CurrentBatch < 0 {
		return fmt.Errorf("%w: negative current_batch", domain.ErrInvalidState)
	}
	if s.CurrentIndex < 0 {
		return fmt.Errorf("%w: negative current_index", domain.ErrInvalidState)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive", domain.ErrInvalidState)
	}
	if !domain.IsValidProcessingList(s.CurrentProcessingList) {
		return fmt.Errorf("%w: unknown processing list %q", domain.ErrInvalidState, s.CurrentProcessingList)
	}
	return nil
}

// IsHealingState reports whether the state belongs to a mid-recovery run.
func IsHealingState(s *domain.WorkflowState) bool {
	return s.HealPhase != domain.HealPhaseNone
}

// IsResumingState reports whether the state resumes prior progress rather
// than starting from scratch.
func IsResumingState(s *domain.WorkflowState) bool {
	return s.RecursionCount > 0 || s.CurrentIndex > 0 || s.CurrentBatch > 0 || s.MasterIndexFile != ""
}

// Progress is a derived, never-persisted summary for UI and logs.
type Progress struct {
	Percentage float64                       `json:"percentage"`
	Processed  int                           `json:"processed"`
	Expected   map[domain.ProcessingList]int `json:"expected,omitempty"`
	Completed  []string                      `json:"completed_batches,omitempty"`
}

// ProgressSummary derives completion counts from the cursor position and
// the expected totals.
func ProgressSummary(s *domain.WorkflowState) Progress {
	processed := s.CurrentBatch*s.BatchSize + s.CurrentIndex

	total := 0
	for _, n := range s.TotalConnections {
		total += n
	}

	p := Progress{
		Processed: processed,
		Expected:  s.TotalConnections,
		Completed: s.CompletedBatches,
	}
	if total > 0 {
		p.Percentage = 100 * float64(processed) / float64(total)
		if p.Percentage > 100 {
			p.Percentage = 100
		}
	}
	return p
}
