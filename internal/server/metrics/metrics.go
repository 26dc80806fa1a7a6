// Package metrics defines the server's Prometheus instruments.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters updated by the ingest, reconcile and alert
// services. Build one per process with New and share it.
type Metrics struct {
	Passages       *prometheus.CounterVec // status: created|duplicate
	Matches        *prometheus.CounterVec // outcome: matched|conflict|invalid|error
	Violations     *prometheus.CounterVec // type: speeding|overstay
	AlertsCreated  prometheus.Counter
	AlertsResolved prometheus.Counter
	SMSInbound     *prometheus.CounterVec // result: accepted|duplicate|rejected
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Passages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkpost",
			Name:      "passages_ingested_total",
			Help:      "Passages received by the server, by ingest status.",
		}, []string{"status"}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkpost",
			Name:      "matches_total",
			Help:      "Reconciliation attempts, by outcome.",
		}, []string{"outcome"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkpost",
			Name:      "violations_total",
			Help:      "Authoritative violations recorded, by type.",
		}, []string{"type"}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkpost",
			Name:      "overstay_alerts_created_total",
			Help:      "Expected-overstay alerts raised by the overdue scan.",
		}),
		AlertsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkpost",
			Name:      "overstay_alerts_resolved_total",
			Help:      "Expected-overstay alerts closed by a later match.",
		}),
		SMSInbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkpost",
			Name:      "sms_inbound_total",
			Help:      "SMS passage reports received from the gateway, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Passages, m.Matches, m.Violations, m.AlertsCreated, m.AlertsResolved, m.SMSInbound)
	return m
}

// NewUnregistered returns instruments that are not exported anywhere.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
