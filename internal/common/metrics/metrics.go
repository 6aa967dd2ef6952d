package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record kinds used as the "kind" label.
const (
	KindStories   = "stories"
	KindTestCases = "test_cases"
	KindModules   = "modules"
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
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
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

	GenerationRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_records_total",
			Help: "Normalized records produced by generation rounds",
		},
		[]string{"kind"},
	)

	GenerationPartialBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_partial_batches_total",
			Help: "Generation rounds that fell back to recovered objects",
		},
		[]string{"kind"},
	)

	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_failures_total",
			Help: "Generation rounds that produced nothing",
		},
		[]string{"kind", "error_code"},
	)

	DedupeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedupe_dropped_total",
			Help: "Records discarded as duplicates",
		},
		[]string{"kind"},
	)

	ApprovedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approved_records_total",
			Help: "Records added to approved collections",
		},
		[]string{"kind"},
	)
)
