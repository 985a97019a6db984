package job

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for job orchestration.
type Metrics struct {
	JobsStarted   prometheus.Counter
	JobsFinished  *prometheus.CounterVec
	JobsInFlight  prometheus.Gauge
	JobDuration   *prometheus.HistogramVec
	StageDuration *prometheus.HistogramVec
	Selections    *prometheus.CounterVec
	ArtifactBytes prometheus.Histogram
}

// NewMetrics returns the process-wide job metrics, registering them on
// first use.
//
// Metrics:
//   - repopackd_jobs_started_total
//   - repopackd_jobs_finished_total{outcome}
//   - repopackd_jobs_in_flight
//   - repopackd_job_duration_seconds{outcome}
//   - repopackd_job_stage_duration_seconds{stage}
//   - repopackd_selections_total{source}
//   - repopackd_artifact_bytes
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "repopackd_jobs_started_total",
				Help: "Total number of jobs started",
			}),
			JobsFinished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repopackd_jobs_finished_total",
					Help: "Total number of jobs that reached a terminal state",
				},
				[]string{"outcome"}, // "completed" or "failed"
			),
			JobsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "repopackd_jobs_in_flight",
				Help: "Number of jobs currently running",
			}),
			JobDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "repopackd_job_duration_seconds",
					Help:    "End-to-end job duration in seconds",
					Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
				},
				[]string{"outcome"},
			),
			StageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "repopackd_job_stage_duration_seconds",
					Help:    "Duration of each job stage in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"stage"},
			),
			Selections: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "repopackd_selections_total",
					Help: "Exclusion gate resolutions by source",
				},
				[]string{"source"}, // "caller", "default" or "timeout"
			),
			ArtifactBytes: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "repopackd_artifact_bytes",
				Help:    "Size of completed artifacts in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			}),
		}
	})
	return globalMetrics
}
