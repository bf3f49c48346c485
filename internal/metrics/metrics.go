package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epc_tasks_submitted_total",
			Help: "Total number of task submissions by kind and partition.",
		},
		[]string{"kind", "partition"},
	)

	SubmissionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epc_submission_retries_total",
			Help: "Total number of failed submission attempts by partition.",
		},
		[]string{"partition"},
	)

	TasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epc_tasks_completed_total",
			Help: "Total number of tasks reaching a terminal status.",
		},
		[]string{"kind", "status"},
	)

	TaskFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epc_task_failures_total",
			Help: "Total number of task failures by reason.",
		},
		[]string{"reason"},
	)

	TaskDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "epc_task_duration_seconds",
			Help:    "Wall time from submission to terminal status.",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 43200, 86400},
		},
		[]string{"kind", "status"},
	)

	PollCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "epc_poll_cycles_total",
			Help: "Total number of monitor poll cycles.",
		},
	)

	PartitionActiveJobs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "epc_partition_active_jobs",
			Help: "Number of queued or running jobs per partition.",
		},
		[]string{"partition"},
	)
)

// Register registers all orchestrator metrics with the default
// Prometheus registry.
func Register() {
	prometheus.MustRegister(
		TasksSubmittedTotal,
		SubmissionRetriesTotal,
		TasksCompletedTotal,
		TaskFailuresTotal,
		TaskDurationSeconds,
		PollCyclesTotal,
		PartitionActiveJobs,
	)
}
