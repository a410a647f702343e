package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the census and access engine.
type Metrics struct {
	// Household submissions by outcome: inserted, overwritten, conflict, invalid, failed
	Submissions *prometheus.CounterVec

	// Requests refused by the access policy, by reason (feature, scope)
	AccessDenied *prometheus.CounterVec

	// Request latency by route pattern and status class
	RequestLatency *prometheus.HistogramVec
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warga_census_submissions_total",
			Help: "Household submissions by outcome",
		}, []string{"outcome"}),

		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warga_access_denied_total",
			Help: "Requests refused by the access policy",
		}, []string{"reason", "role"}),

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warga_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

// IncrementSubmission records a census submission outcome.
func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// IncrementAccessDenied records a refused request.
func (m *Metrics) IncrementAccessDenied(reason, role string) {
	if m != nil {
		m.AccessDenied.WithLabelValues(reason, role).Inc()
	}
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route, status).Observe(d.Seconds())
	}
}
