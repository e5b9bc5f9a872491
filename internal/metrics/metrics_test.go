package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Transition("approve", "current")
	m.Transition("approve", "current")
	m.Synced("committed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approve", "current")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicketSync.WithLabelValues("committed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Registrations))
}
