package domain

import "time"

// SchemaVersion is the checkpoint file schema version. Bump when the
// WorkflowState wire format changes incompatibly.
const SchemaVersion = 1

// ProcessingList identifies which connection list a job is working through.
type ProcessingList string

const (
	ListAll    ProcessingList = "all"
	ListNew    ProcessingList = "new"
	ListActive ProcessingList = "active"
)

// ValidProcessingLists is the closed set of list categories.
var ValidProcessingLists = []ProcessingList{ListAll, ListNew, ListActive}

// HealPhase marks which loop a recovery process should resume.
type HealPhase string

const (
	HealPhaseNone    HealPhase = ""
	HealPhaseCollect HealPhase = "collect"
	HealPhaseProcess HealPhase = "process"
)

// WorkflowState is the unit of checkpoint/resume for one logical job.
// In memory Credential and BearerToken hold plaintext; on disk they hold
// sealed envelope tags and nothing else.
type WorkflowState struct {
	SchemaVersion int    `json:"schema_version"`
	JobID         string `json:"job_id"`
	SearchURL     string `json:"search_url"`

	// Secret fields. Sealed before the state is ever written to disk.
	Credential  string `json:"credential,omitempty"`
	BearerToken string `json:"bearer_token,omitempty"`

	// RecursionCount is the number of successive healing escalations for
	// this job. Incremented only by the healing orchestrator.
	RecursionCount int `json:"recursion_count"`

	// HealPhase/HealReason are set only while mid-recovery and cleared
	// on a clean restart.
	HealPhase  HealPhase `json:"heal_phase,omitempty"`
	HealReason string    `json:"heal_reason,omitempty"`

	CurrentProcessingList ProcessingList `json:"current_processing_list"`
	CurrentBatch          int            `json:"current_batch"`
	CurrentIndex          int            `json:"current_index"`
	CompletedBatches      []string       `json:"completed_batches,omitempty"`

	// MasterIndexFile points at the checkpoint artifact holding harvested
	// links (or remaining work after an escalation).
	MasterIndexFile string `json:"master_index_file,omitempty"`

	BatchSize        int                    `json:"batch_size"`
	TotalConnections map[ProcessingList]int `json:"total_connections,omitempty"`
	Timestamp        time.Time              `json:"timestamp"`
}

// IsValidProcessingList reports whether l belongs to the closed set.
func IsValidProcessingList(l ProcessingList) bool {
	for _, v := range ValidProcessingLists {
		if v == l {
			return true
		}
	}
	return false
}
