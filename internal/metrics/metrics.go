// Package metrics defines the Prometheus collectors for the scrape engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape cycle metrics
var (
	// ScrapeCyclesTotal counts completed aggregation cycles by final status.
	ScrapeCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_cycles_total",
			Help: "Completed aggregation cycles by snapshot status",
		},
		[]string{"status"},
	)

	// SourceFetchFailures counts failed fetch attempts per source.
	SourceFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_failures_total",
			Help: "Failed review fetch attempts by source",
		},
		[]string{"source"},
	)

	// SourceFetchDuration tracks fetch latency per source in seconds.
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Review fetch duration by source in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)
)

// Poll job metrics
var (
	// PollJobActive is 1 while a background poll job is running, 0 otherwise.
	PollJobActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poll_job_active",
			Help: "Whether a background poll job is currently active",
		},
	)

	// PollJobSupersessions counts poll jobs stopped because a newer request
	// replaced them.
	PollJobSupersessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poll_job_supersessions_total",
			Help: "Poll jobs cancelled by a superseding scrape request",
		},
	)

	// PollJobStopTimeouts counts stops that proceeded without the job
	// acknowledging cancellation within the grace period.
	PollJobStopTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poll_job_stop_timeouts_total",
			Help: "Poll job stops that hit the grace timeout before acknowledgement",
		},
	)
)
