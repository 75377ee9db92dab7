// Package metrics exposes Prometheus instrumentation for the node
// engine. It is pure ambient observability: nothing here feeds back into
// protocol decisions, per spec.md §1's non-goals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and gauges one node engine updates.
type Metrics struct {
	Ticks            prometheus.Counter
	MessagesSent     *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	MulticastEntries *prometheus.GaugeVec
}

// New registers a fresh metric set on reg, labeled with the owning node's
// id so multiple engines in one process (as the in-memory simulation
// runs) don't collide.
func New(reg prometheus.Registerer, nodeID string) *Metrics {
	labels := prometheus.Labels{"node": nodeID}

	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rpfmesh",
			Name:        "ticks_total",
			Help:        "Number of ticks processed by the node engine.",
			ConstLabels: labels,
		}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rpfmesh",
			Name:        "messages_sent_total",
			Help:        "Messages emitted by the node engine, by wire type.",
			ConstLabels: labels,
		}, []string{"type"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rpfmesh",
			Name:        "messages_dropped_total",
			Help:        "Messages dropped (malformed inbound or failed outbound writes), by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		MulticastEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "rpfmesh",
			Name:        "multicast_entries",
			Help:        "Current multicast table entry count, by root.",
			ConstLabels: labels,
		}, []string{"root"}),
	}

	if reg != nil {
		reg.MustRegister(m.Ticks, m.MessagesSent, m.MessagesDropped, m.MulticastEntries)
	}
	return m
}
