package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PaymentIntentsCreated prometheus.Counter
	ContributionsRecorded prometheus.Counter
	WithdrawalsInitiated  prometheus.Counter
	WithdrawalsCompleted  prometheus.Counter
	OTPVerifyFailures     prometheus.Counter
	ProcessorLatency      prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PaymentIntentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pampermomma_payment_intents_created_total",
			Help: "Total number of payment intents requested from the processor",
		}),
		ContributionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pampermomma_contributions_recorded_total",
			Help: "Total number of contributions recorded from processor events",
		}),
		WithdrawalsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pampermomma_withdrawals_initiated_total",
			Help: "Total number of withdrawal verification codes dispatched",
		}),
		WithdrawalsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pampermomma_withdrawals_completed_total",
			Help: "Total number of withdrawals finalized",
		}),
		OTPVerifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pampermomma_otp_verify_failures_total",
			Help: "Total number of rejected withdrawal verification attempts",
		}),
		ProcessorLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pampermomma_processor_request_duration_seconds",
			Help:    "Latency of payment processor API calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveProcessorLatency records one processor round-trip duration.
func (m *Metrics) ObserveProcessorLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.ProcessorLatency.Observe(d.Seconds())
}
