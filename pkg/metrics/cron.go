package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "unitrade"

// CronJobMetrics records outcomes and latency of scheduled jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on reg. A nil registerer yields no-op metrics.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cron",
		Name:      "job_duration_seconds",
		Help:      "Duration of cron jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cron",
		Name:      "job_runs_total",
		Help:      "Cron job executions by result.",
	}, []string{"job", "result"})
	reg.MustRegister(duration, runs)
	return &CronJobMetrics{duration: duration, runs: runs}
}

func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(label(job)).Observe(duration.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	c.incRun(job, "success")
}

func (c *CronJobMetrics) IncFailure(job string) {
	c.incRun(job, "failure")
}

func (c *CronJobMetrics) incRun(job, result string) {
	if c == nil || c.runs == nil {
		return
	}
	c.runs.WithLabelValues(label(job), result).Inc()
}

func label(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
