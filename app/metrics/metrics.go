package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cti_items_processed_total",
			Help: "Items handled by fetch jobs, by outcome",
		},
		[]string{"source", "outcome"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cti_jobs_total",
			Help: "Fetch jobs, by final status",
		},
		[]string{"status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cti_fetch_duration_seconds",
			Help:    "Connector fetch latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	ScheduledSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cti_scheduled_sources",
			Help: "Repeatable fetch jobs registered by the last reconcile",
		},
	)

	RepeatsPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cti_repeats_promoted_total",
			Help: "Repeatable jobs turned into fetch jobs",
		},
	)
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
