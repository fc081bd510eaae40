package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_scheduler_job_runs_total",
		Help: "Completed runs per job, failed runs included.",
	}, []string{"job"})
	jobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_scheduler_job_failures_total",
		Help: "Runs that returned an error, per job.",
	}, []string{"job"})
	jobOverruns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_scheduler_job_overruns_total",
		Help: "Ticks dropped because the previous run was still in flight.",
	}, []string{"job"})
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexer_scheduler_job_duration_seconds",
		Help:    "Run duration per job.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"job"})
)
