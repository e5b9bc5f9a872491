package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the directory.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	TicketSync      *prometheus.CounterVec
	Registrations   prometheus.Counter
	NotifyFailures  prometheus.Counter
	TicketSyncTimer prometheus.Histogram
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "serviceinfo_service_transitions_total",
			Help: "Service record lifecycle events by event and resulting status",
		}, []string{"event", "status"}),
		TicketSync: f.NewCounterVec(prometheus.CounterOpts{
			Name: "serviceinfo_ticket_sync_total",
			Help: "Jira synchronization attempts by outcome",
		}, []string{"outcome"}),
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "serviceinfo_provider_registrations_total",
			Help: "Providers registered",
		}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "serviceinfo_notify_failures_total",
			Help: "Notifications that could not be enqueued",
		}),
		TicketSyncTimer: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "serviceinfo_ticket_sync_seconds",
			Help:    "Duration of a single Jira issue creation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Transition(event, status string) {
	m.Transitions.WithLabelValues(event, status).Inc()
}

func (m *Metrics) Synced(outcome string) {
	m.TicketSync.WithLabelValues(outcome).Inc()
}
