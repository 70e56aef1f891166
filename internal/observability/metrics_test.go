package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.TicketOpened("button")
	m.TicketOpened("button")
	m.OpenRejected("quota")
	m.SweepCompleted(3, 1)
	m.RecordRequest("/health/live", "GET", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticketsOpened.WithLabelValues("button")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openRejections.WithLabelValues("quota")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweepArchived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/health/live", "GET", "200")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TicketOpened("button")
		m.Transition("close")
		m.SweepCompleted(1, 0)
		m.Interaction("button", "ok")
	})
}
