package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IPNReceived("recorded")
	m.IPNReceived("recorded")
	m.IPNReceived("duplicate")
	m.Forward(ResultFailure)
	m.CashOut(ResultSuccess)
	m.Alert(ResultSuccess)
	m.Dropped("forward")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ipnReceived.WithLabelValues("recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ipnReceived.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forwards.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cashOuts.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("forward")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IPNReceived("recorded")
		m.Forward(ResultSuccess)
		m.CashOut(ResultFailure)
		m.Alert(ResultFailure)
		m.Dropped("payment")
	})
}
