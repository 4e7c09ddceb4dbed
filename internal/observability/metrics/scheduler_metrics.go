// Package metrics exposes prometheus instruments for the billing scheduler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics captures billing scheduler health signals.
type SchedulerMetrics struct {
	jobRuns         *prometheus.CounterVec
	jobErrors       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	storesProcessed *prometheus.CounterVec
	invoicesCreated prometheus.Counter
	feesSettled     prometheus.Counter
	notifyFailures  prometheus.Counter
}

// NewSchedulerMetrics registers the scheduler instruments on reg.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_scheduler_job_runs_total",
			Help: "Number of scheduler job invocations.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_scheduler_job_errors_total",
			Help: "Number of per-store errors observed by scheduler jobs.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billing_scheduler_job_duration_seconds",
			Help:    "Duration of scheduler job runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		storesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_scheduler_stores_processed_total",
			Help: "Number of stores successfully processed per job.",
		}, []string{"job"}),
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_invoices_created_total",
			Help: "Number of invoices committed.",
		}),
		feesSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_fees_settled_total",
			Help: "Number of fee records settled.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_notification_failures_total",
			Help: "Number of best-effort notification writes that failed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.jobRuns,
			m.jobErrors,
			m.jobDuration,
			m.storesProcessed,
			m.invoicesCreated,
			m.feesSettled,
			m.notifyFailures,
		)
	}
	return m
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) AddStoresProcessed(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.storesProcessed.WithLabelValues(job).Add(float64(count))
}

func (m *SchedulerMetrics) IncInvoicesCreated() {
	if m == nil {
		return
	}
	m.invoicesCreated.Inc()
}

func (m *SchedulerMetrics) AddFeesSettled(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.feesSettled.Add(float64(count))
}

func (m *SchedulerMetrics) IncNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}
