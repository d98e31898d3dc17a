// Package metrics exposes prometheus counters for the wallet core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters recorded by the session store and workflows
type Metrics struct {
	ConnectAttempts  *prometheus.CounterVec
	InboundActions   *prometheus.CounterVec
	WorkflowOutcomes *prometheus.CounterVec
}

// New registers the counters on reg; a nil reg leaves them unregistered
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletlink",
			Name:      "connect_attempts_total",
			Help:      "Wallet connect attempts by wallet and result.",
		}, []string{"wallet", "result"}),
		InboundActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletlink",
			Name:      "deeplink_inbound_total",
			Help:      "Deep-link responses handled on load by action and result.",
		}, []string{"action", "result"}),
		WorkflowOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletlink",
			Name:      "workflow_outcomes_total",
			Help:      "Signing workflow transitions by operation and state.",
		}, []string{"operation", "state"}),
	}

	if reg != nil {
		reg.MustRegister(m.ConnectAttempts, m.InboundActions, m.WorkflowOutcomes)
	}

	return m
}

// OrDefault returns m, or a fresh unregistered set when m is nil
func OrDefault(m *Metrics) *Metrics {
	if m == nil {
		return New(nil)
	}
	return m
}
