// Package metrics exposes the engine's Prometheus counters and gauges:
// checks executed/timed out, cluster messages sent/received/dropped,
// replay lag, and authority reassignments. The teacher has no /metrics
// surface; this is grounded in ipiton-alert-history-service's and
// r3e-network-service_layer's client_golang wiring.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric the engine exports. It is a value owned
// by the daemon, registered once against a prometheus.Registerer at
// startup — no package-level default-registry globals, matching the
// event bus's and object runtime's no-singleton rule.
type Registry struct {
	ChecksExecuted   prometheus.Counter
	ChecksTimedOut   prometheus.Counter
	ChecksUnknown    prometheus.Counter
	ClusterMsgSent   *prometheus.CounterVec
	ClusterMsgRecv   *prometheus.CounterVec
	ClusterMsgDrop   *prometheus.CounterVec
	PeerConnected    *prometheus.GaugeVec
	ReplayLagSeconds *prometheus.GaugeVec
	AuthorityMoves   prometheus.Counter
}

// New constructs a Registry and registers every metric against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		ChecksExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gogios",
			Subsystem: "checker",
			Name:      "checks_executed_total",
			Help:      "Total number of checks launched by the executor.",
		}),
		ChecksTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gogios",
			Subsystem: "checker",
			Name:      "checks_timed_out_total",
			Help:      "Total number of checks that exceeded their deadline.",
		}),
		ChecksUnknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gogios",
			Subsystem: "checker",
			Name:      "checks_unknown_total",
			Help:      "Total number of checks that produced a synthetic UNKNOWN result.",
		}),
		ClusterMsgSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gogios",
			Subsystem: "cluster",
			Name:      "messages_sent_total",
			Help:      "Messages sent to a peer, by method.",
		}, []string{"peer", "method"}),
		ClusterMsgRecv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gogios",
			Subsystem: "cluster",
			Name:      "messages_received_total",
			Help:      "Messages received from a peer, by method.",
		}, []string{"peer", "method"}),
		ClusterMsgDrop: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gogios",
			Subsystem: "cluster",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped, by peer and reason (rate_limited, decode_error, duplicate).",
		}, []string{"peer", "reason"}),
		PeerConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gogios",
			Subsystem: "cluster",
			Name:      "peer_connected",
			Help:      "1 if the peer link is up, 0 otherwise.",
		}, []string{"peer"}),
		ReplayLagSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gogios",
			Subsystem: "replay",
			Name:      "lag_seconds",
			Help:      "Seconds between now and the last applied journal entry's timestamp, per peer.",
		}, []string{"peer"}),
		AuthorityMoves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gogios",
			Subsystem: "authority",
			Name:      "reassignments_total",
			Help:      "Total number of times authority recomputation changed any object's owner.",
		}),
	}

	reg.MustRegister(
		m.ChecksExecuted,
		m.ChecksTimedOut,
		m.ChecksUnknown,
		m.ClusterMsgSent,
		m.ClusterMsgRecv,
		m.ClusterMsgDrop,
		m.PeerConnected,
		m.ReplayLagSeconds,
		m.AuthorityMoves,
	)
	return m
}
