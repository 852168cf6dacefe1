// Package metrics exposes the prometheus instrumentation for the
// submission pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SubmissionsTotal counts submissions by kind and outcome
	// (passed, failed, conflict, rejected, error).
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_submissions_total",
			Help: "Total number of achievement submissions processed",
		},
		[]string{"kind", "outcome"},
	)

	// ValidationDuration observes validator latency by kind.
	ValidationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "achievements_validation_duration_seconds",
			Help:    "Duration of submission validation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// VouchersIssued counts signed completion vouchers.
	VouchersIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "achievements_vouchers_issued_total",
			Help: "Total number of completion vouchers signed",
		},
	)

	// ExternalFetchErrors counts failures against external collaborators.
	ExternalFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_external_fetch_errors_total",
			Help: "Failures reaching external data sources and RPC endpoints",
		},
		[]string{"source"},
	)

	// APIRequestDuration observes HTTP handler latency by path.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "achievements_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		ValidationDuration,
		VouchersIssued,
		ExternalFetchErrors,
		APIRequestDuration,
	)
}
