package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountTransitions(t *testing.T) {
	m := NewMetrics()

	m.TicketClosed(true)
	m.TicketClosed(false)
	m.TicketClosed(true)
	m.DispatchResult("claimed")
	m.RecordsCleared(3)
	m.RecordsCleared(0)
	m.RecordRequest("/tickets/:id", "GET", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticketsClosed.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketsClosed.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchClaims.WithLabelValues("claimed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cleared))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/tickets/:id", "200")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TicketClosed(true)
		m.SideEffectFailed("notification")
		m.EventDropped()
		m.RecordError("/x", "GET", "NOT_FOUND")
	})
	assert.Nil(t, m.Registry())
}
