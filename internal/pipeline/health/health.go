// Package health provides pipeline health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a job.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// JobHealth contains health metrics for one running job.
type JobHealth struct {
	JobID          string       `json:"job_id"`
	Status         SystemStatus `json:"status"`
	Phase          string       `json:"phase"`
	RecursionCount int          `json:"recursion_count"`
	StallSeconds   float64      `json:"stall_seconds"`
	QueueDepth     int          `json:"queue_depth"`
	ItemsDone      int          `json:"items_done"`
	ItemsTotal     int          `json:"items_total"`
}

// HealthReport contains the full pipeline health report.
type HealthReport struct {
	SystemStatus SystemStatus         `json:"system_status"`
	Jobs         map[string]JobHealth `json:"jobs"`
}
