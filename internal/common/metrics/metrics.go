// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// GenerationOutcomes counts AI-backed operations by the source that
	// produced the result: "ai" or "fallback".
	GenerationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_generation_outcomes_total",
			Help: "AI-backed operations by result source",
		},
		[]string{"operation", "source"},
	)

	ListingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_listings_created_total",
			Help: "Listings created by initial status",
		},
		[]string{"status"},
	)

	ListingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_listing_transitions_total",
			Help: "Listing status transitions by target status",
		},
		[]string{"status", "changed"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_validation_failures_total",
			Help: "Rejected listing submissions by offending field",
		},
		[]string{"field"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_request_duration_seconds",
			Help:    "Duration of engine operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)
)
