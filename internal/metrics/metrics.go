package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StorageOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_storage_operation_duration_seconds",
			Help:    "Duration of storage backend operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend", "operation"},
	)

	StorageOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_storage_operation_errors_total",
			Help: "Total number of failed storage operations by error kind",
		},
		[]string{"backend", "operation", "kind"},
	)

	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_auth_gate_decisions_total",
			Help: "Authorization gate decisions per operation",
		},
		[]string{"operation", "decision"},
	)

	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_auth_tokens_issued_total",
			Help: "Total number of access tokens issued by login",
		},
	)
)
