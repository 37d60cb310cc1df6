package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// JobMetrics tracks scheduled job execution per job name. The business
// counters (items, feeds, queue depths) live in
// internal/observability/metrics; these only cover the scheduling
// layer.
type JobMetrics struct {
	runsTotal       *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	lastSuccess     *prometheus.GaugeVec
}

// NewJobMetrics creates and registers the job metrics.
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Scheduled job runs by job name and outcome",
		}, []string{"job", "status"}),

		durationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Scheduled job execution duration in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}, []string{"job"}),

		lastSuccess: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per job",
		}, []string{"job"}),
	}
}

// RecordJobRun counts one run with its outcome ("success" or
// "failure").
func (m *JobMetrics) RecordJobRun(job, status string) {
	m.runsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes how long one run took.
func (m *JobMetrics) RecordJobDuration(job string, d time.Duration) {
	m.durationSeconds.WithLabelValues(job).Observe(d.Seconds())
}

// RecordJobLastSuccess stamps the last successful completion.
func (m *JobMetrics) RecordJobLastSuccess(job string) {
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}
