// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_decisions_total",
			Help: "Loan decisions by outcome and the rule that produced them",
		},
		[]string{"outcome", "rule"},
	)

	ConsensusRiskTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_consensus_risk_total",
			Help: "Consensus risk labels produced by majority vote",
		},
		[]string{"risk"},
	)

	ModelVotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_model_votes_total",
			Help: "Risk labels returned by each classifier",
		},
		[]string{"model", "vote"},
	)

	AuditWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_audit_write_failures_total",
			Help: "Audit records that a sink failed to persist",
		},
		[]string{"sink"},
	)
)

// JobStarted marks a job active and returns a func that settles the job metrics.
// Pass an empty error code for a completed job.
func JobStarted(taskType string) func(errorCode string) {
	start := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()

	return func(errorCode string) {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		if errorCode == "" {
			WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}
