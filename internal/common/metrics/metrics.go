// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionJobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_jobs_submitted_total",
			Help: "Total number of extraction jobs submitted",
		},
	)

	ExtractionJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_jobs_completed_total",
			Help: "Total number of extraction jobs reaching a terminal state",
		},
		[]string{"status"},
	)

	ExtractionJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_job_duration_seconds",
			Help:    "Wall time from submit to terminal job state",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	ExtractionPollTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_poll_ticks_total",
			Help: "Total number of poll requests by result",
		},
		[]string{"result"},
	)

	ExtractionJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "extraction_jobs_active",
			Help: "Number of extraction jobs currently being polled",
		},
	)

	ImageSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_searches_total",
			Help: "Total number of image candidate searches by result",
		},
		[]string{"result"},
	)

	ImageUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_uploads_total",
			Help: "Total number of local image uploads by result",
		},
		[]string{"result"},
	)

	PublishAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_publish_attempts_total",
			Help: "Total number of create/publish attempts by outcome",
		},
		[]string{"outcome"},
	)
)
