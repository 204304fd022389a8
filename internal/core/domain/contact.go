package domain

import "time"

// Link is one harvested profile link from a people-search page.
type Link struct {
	URL       string    `json:"url"`
	Name      string    `json:"name,omitempty"`
	Headline  string    `json:"headline,omitempty"`
	Page      int       `json:"page"`
	FetchedAt time.Time `json:"fetched_at"`
}

// AnalysisResult is the outcome of per-item contact analysis.
type AnalysisResult struct {
	Link         Link      `json:"link"`
	Qualified    bool      `json:"qualified"`
	LastActivity time.Time `json:"last_activity,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// QualifiedContact is a contact that passed the acceptance predicate,
// persisted to the result store.
type QualifiedContact struct {
	JobID       string    `json:"job_id"`
	URL         string    `json:"url"`
	Name        string    `json:"name,omitempty"`
	Headline    string    `json:"headline,omitempty"`
	QualifiedAt time.Time `json:"qualified_at"`
}

// JobRun records one run (initial or healing) of a logical job.
type JobRun struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	RecursionCount int       `json:"recursion_count"`
	Phase          string    `json:"phase"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitempty"`
	Outcome        string    `json:"outcome,omitempty"`
}
