package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Relay outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeOffline   = "offline"
	OutcomeDropped   = "dropped"
	OutcomeDead      = "dead"
	OutcomeEncode    = "encode_error"
)

// Metrics holds the realtime counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	connections     prometheus.Gauge
	replacements    prometheus.Counter
	relayEvents     *prometheus.CounterVec
	presence        *prometheus.CounterVec
	presenceDropped prometheus.Counter
	rateLimited     *prometheus.CounterVec
}

// New creates and registers all metrics on reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duochat_connections_active",
			Help: "Identities with a live registered connection.",
		}),
		replacements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duochat_registry_replacements_total",
			Help: "Registrations that superseded an existing connection for the same identity.",
		}),
		relayEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duochat_relay_events_total",
			Help: "Relay deliveries per event kind and outcome.",
		}, []string{"kind", "outcome"}),
		presence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duochat_presence_announcements_total",
			Help: "Presence transitions announced, by state.",
		}, []string{"state"}),
		presenceDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duochat_presence_mirror_dropped_total",
			Help: "Presence transitions not mirrored because the worker queue was full.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duochat_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by scope.",
		}, []string{"scope"}),
	}
	reg.MustRegister(
		m.connections,
		m.replacements,
		m.relayEvents,
		m.presence,
		m.presenceDropped,
		m.rateLimited,
	)
	return m
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) IncReplacement() {
	if m == nil {
		return
	}
	m.replacements.Inc()
}

func (m *Metrics) Relay(kind, outcome string) {
	if m == nil {
		return
	}
	m.relayEvents.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Presence(online bool) {
	if m == nil {
		return
	}
	state := "offline"
	if online {
		state = "online"
	}
	m.presence.WithLabelValues(state).Inc()
}

func (m *Metrics) IncPresenceDropped() {
	if m == nil {
		return
	}
	m.presenceDropped.Inc()
}

func (m *Metrics) IncRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(scope).Inc()
}
