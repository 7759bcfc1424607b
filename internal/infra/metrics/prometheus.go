package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipframe_jobs_processed_total",
		Help: "Total number of extraction jobs processed, by status and mode",
	}, []string{"status", "mode"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipframe_job_processing_duration_seconds",
		Help:    "Duration of the extraction pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipframe_frames_saved_total",
		Help: "Total number of frames written across all jobs",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipframe_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipframe_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
