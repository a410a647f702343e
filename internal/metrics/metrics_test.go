package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementSubmission("conflict")
	m.IncrementSubmission("conflict")
	m.IncrementAccessDenied("scope", "treasurer")
	m.ObserveRequest("/admin/api/v1/people", "2xx", 30*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDenied.WithLabelValues("scope", "treasurer")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestLatency))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementSubmission("inserted")
		m.IncrementAccessDenied("feature", "secretary")
		m.ObserveRequest("/", "2xx", time.Millisecond)
	})
}
