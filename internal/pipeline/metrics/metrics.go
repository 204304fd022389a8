package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesHarvested tracks search pages fetched per job.
	PagesHarvested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_pages_harvested_total",
			Help: "Total number of search pages fetched",
		},
		[]string{"job"},
	)

	// EmptyPages tracks pages that rendered without results.
	EmptyPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_empty_pages_total",
			Help: "Total number of empty search pages",
		},
		[]string{"job"},
	)

	// ItemsProcessed tracks per-item analyses by outcome.
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_items_processed_total",
			Help: "Total number of contacts analyzed",
		},
		[]string{"job", "outcome"}, // qualified, unqualified, skipped, failed
	)

	// ErrorsClassified tracks classifier decisions.
	ErrorsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_errors_classified_total",
			Help: "Total number of classified failures",
		},
		[]string{"job", "category"},
	)

	// PauseRetries tracks pause-and-retry windows entered by the processor.
	PauseRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_pause_retries_total",
			Help: "Total number of pause-and-retry windows",
		},
		[]string{"job"},
	)

	// Escalations tracks healing escalations.
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_escalations_total",
			Help: "Total number of healing escalations",
		},
		[]string{"job", "phase"},
	)

	// RecursionCount reports the current healing recursion depth per job.
	RecursionCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prospector_recursion_count",
			Help: "Current healing recursion depth",
		},
		[]string{"job"},
	)

	// CheckpointWrites tracks durable checkpoint writes by artifact kind.
	CheckpointWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_checkpoint_writes_total",
			Help: "Total number of checkpoint writes",
		},
		[]string{"job", "kind"}, // links, qualified, state, partial_work
	)
)
