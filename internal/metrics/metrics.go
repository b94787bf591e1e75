package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genq_jobs_submitted_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"queue"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genq_jobs_completed_total",
			Help: "Total number of jobs that completed successfully",
		},
		[]string{"job_type"},
	)

	JobsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genq_jobs_failed_total",
			Help: "Total number of jobs whose generation callback failed",
		},
		[]string{"job_type"},
	)

	JobsTimedOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genq_jobs_timed_out_total",
			Help: "Total number of jobs force-failed by the per-job deadline",
		},
		[]string{"job_type"},
	)

	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genq_jobs_in_flight",
			Help: "Current number of jobs occupying a concurrency slot",
		},
	)

	JobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genq_job_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~163s
		},
		[]string{"job_type"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genq_rate_limited_total",
			Help: "Total number of requests denied by the rate limiter",
		},
	)

	EphemeralDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genq_ephemeral_deletions_total",
			Help: "Total number of ephemeral upload deletions",
		},
		[]string{"outcome"}, // "ok" or "error"
	)
)
