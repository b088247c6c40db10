package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listgenius_autoblog_runs_total",
			Help: "Total number of pipeline runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listgenius_autoblog_stage_duration_seconds",
			Help:    "Pipeline stage execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listgenius_autoblog_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		},
		[]string{"stage"},
	)

	RevisionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listgenius_autoblog_revision_attempts",
			Help:    "Revision attempts consumed per run before a terminal decision",
			Buckets: prometheus.LinearBuckets(0, 1, 6),
		},
	)

	DuplicateSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listgenius_autoblog_duplicate_skips_total",
			Help: "Runs skipped because the owner already published today",
		},
	)
)
