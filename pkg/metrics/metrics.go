// Package metrics provides observability for the verification pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential lifecycle.
type Metrics struct {
	// Enrollment outcomes by result
	EnrollmentOutcome *prometheus.CounterVec

	// Check-in outcomes by result
	CheckInOutcome *prometheus.CounterVec

	// Boarding outcomes by result
	BoardingOutcome *prometheus.CounterVec

	// Verification provider latencies by operation
	ProviderLatency *prometheus.HistogramVec

	// Full check-in pipeline latency
	CheckInLatency prometheus.Histogram

	// Rows advanced by the expiry sweep, by entity
	SweepExpired *prometheus.CounterVec
}

// New creates a new Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		EnrollmentOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_enrollment_outcomes_total",
			Help: "Total enrollment outcomes by result",
		}, []string{"result"}), // result: "active", "manual_review_required", "rejected"

		CheckInOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_checkin_outcomes_total",
			Help: "Total check-in outcomes by result",
		}, []string{"result"}), // result: "success", "failed", "manual_override"

		BoardingOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_boarding_outcomes_total",
			Help: "Total gate boarding outcomes by result",
		}, []string{"result"}),

		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veripass_provider_duration_seconds",
			Help:    "Duration of verification provider calls by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}), // operation: "extract", "compare", "liveness"

		CheckInLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veripass_checkin_duration_seconds",
			Help:    "Duration of the full check-in pipeline",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		SweepExpired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veripass_sweep_expired_total",
			Help: "Rows advanced to expired by the sweep, by entity",
		}, []string{"entity"}), // entity: "enrollment", "pass"
	}
}

// IncrementEnrollment records an enrollment outcome.
func (m *Metrics) IncrementEnrollment(result string) {
	if m != nil {
		m.EnrollmentOutcome.WithLabelValues(result).Inc()
	}
}

// IncrementCheckIn records a check-in outcome.
func (m *Metrics) IncrementCheckIn(result string) {
	if m != nil {
		m.CheckInOutcome.WithLabelValues(result).Inc()
	}
}

// IncrementBoarding records a boarding outcome.
func (m *Metrics) IncrementBoarding(result string) {
	if m != nil {
		m.BoardingOutcome.WithLabelValues(result).Inc()
	}
}

// ObserveProviderLatency records the duration of one provider call.
func (m *Metrics) ObserveProviderLatency(operation string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveCheckInLatency records the total check-in pipeline duration.
func (m *Metrics) ObserveCheckInLatency(d time.Duration) {
	if m != nil {
		m.CheckInLatency.Observe(d.Seconds())
	}
}

// AddSweepExpired records rows advanced by the expiry sweep.
func (m *Metrics) AddSweepExpired(entity string, n int64) {
	if m != nil && n > 0 {
		m.SweepExpired.WithLabelValues(entity).Add(float64(n))
	}
}
