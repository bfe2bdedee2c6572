package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slidesync_jobs_processed_total",
		Help: "Total number of sync jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slidesync_job_processing_duration_seconds",
		Help:    "Duration of deck sync pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slidesync_frames_sampled_total",
		Help: "Total number of video frames sampled across all jobs",
	})

	PagesRasterizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slidesync_pages_rasterized_total",
		Help: "Total number of deck pages rasterized across all jobs",
	})

	SlideEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slidesync_slide_events_total",
		Help: "Total number of slide events returned by the model",
	})

	EventsRepairedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slidesync_events_repaired_total",
		Help: "Total number of malformed model events repaired during correction",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slidesync_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slidesync_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
