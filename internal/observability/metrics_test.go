package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/account/login", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/account/login", "POST", 200, 5*time.Millisecond)
	m.RecordCodeRejection("expired")
	m.RecordExpunged(3)
	m.RecordExpunged(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/account/login", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.codeRejections.WithLabelValues("expired")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.expunged))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "NOT_FOUND")
		m.RecordEvent("user_signed_up")
		m.RecordCodeRejection("not_found")
		m.RecordExpunged(1)
		m.RecordConfirmationsPurged(1)
	})
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = NewMetrics()
		_ = NewMetrics()
	})
}
