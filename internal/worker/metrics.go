package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mfadel/brontes/internal/model"
)

var (
	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brontes_polls_total",
			Help: "Total number of poll calls by result.",
		},
		[]string{"task_type", "result"},
	)

	itemsPolledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brontes_items_polled_total",
			Help: "Total number of work items received from polling.",
		},
		[]string{"task_type"},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brontes_executions_total",
			Help: "Total number of handler executions by outcome.",
		},
		[]string{"task_type", "status"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brontes_execution_duration_seconds",
			Help:    "Handler execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brontes_reports_total",
			Help: "Total number of outcome reports by result.",
		},
		[]string{"task_type", "result"},
	)

	leaseExtensionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brontes_lease_extensions_total",
			Help: "Total number of lease extension calls by result.",
		},
		[]string{"task_type", "result"},
	)

	activeSlots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brontes_active_slots",
			Help: "Number of handler executions currently in flight.",
		},
		[]string{"task_type"},
	)

	queuedItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brontes_queued_items",
			Help: "Number of polled work items waiting for a free slot.",
		},
		[]string{"task_type"},
	)
)

func init() {
	prometheus.MustRegister(
		pollsTotal,
		itemsPolledTotal,
		executionsTotal,
		executionDuration,
		reportsTotal,
		leaseExtensionsTotal,
		activeSlots,
		queuedItems,
	)
}

// outcomeLabel maps an outcome to its metrics label.
func outcomeLabel(o model.Outcome) string {
	switch {
	case o.Status == model.StatusCompleted:
		return "completed"
	case o.Status == model.StatusInProgress:
		return "in_progress"
	case o.Retryable:
		return "failed_retryable"
	default:
		return "failed_fatal"
	}
}
