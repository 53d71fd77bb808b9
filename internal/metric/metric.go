// Package metric exposes the console's Prometheus instrumentation.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load outcomes recorded on the subgraph load counter.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// Metrics holds the console's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	SubgraphLoads  *prometheus.CounterVec
	Merges         *prometheus.CounterVec
	Edits          *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SubgraphLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_subgraph_loads_total",
			Help: "Subgraph loads by navigation scope and outcome.",
		}, []string{"scope", "outcome"}),
		Merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_entity_merges_total",
			Help: "Entity merge attempts by outcome.",
		}, []string{"outcome"}),
		Edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_edits_total",
			Help: "Entity and relationship edits by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_active_sessions",
			Help: "Currently connected console sessions.",
		}),
	}

	m.registry.MustRegister(m.SubgraphLoads, m.Merges, m.Edits, m.ActiveSessions)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
