// Package metrics exposes Prometheus collectors for the session and
// signing pipeline. Collectors are registered on an injected registry so
// tests can use a fresh one per case.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recorded by the broker, executor, and
// session store.
type Metrics struct {
	CustodyCalls   *prometheus.CounterVec
	CustodyLatency *prometheus.HistogramVec

	SessionsCreated     *prometheus.CounterVec
	SessionsRefreshed   prometheus.Counter
	SessionsInvalidated prometheus.Counter
	SessionsSwept       prometheus.Counter

	Outcomes *prometheus.CounterVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CustodyCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "custody_calls_total",
			Help:      "Custody service submissions by activity type and outcome.",
		}, []string{"activity_type", "outcome"}),
		CustodyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "walletd",
			Name:      "custody_call_duration_seconds",
			Help:      "Custody service call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"activity_type"}),
		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "sessions_created_total",
			Help:      "Sessions created by purpose.",
		}, []string{"purpose"}),
		SessionsRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "sessions_refreshed_total",
			Help:      "Proactive session refreshes.",
		}),
		SessionsInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "sessions_invalidated_total",
			Help:      "Explicit session invalidations.",
		}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "sessions_swept_total",
			Help:      "Expired sessions removed by the sweeper.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletd",
			Name:      "signing_outcomes_total",
			Help:      "Signed-request outcomes by class.",
		}, []string{"class"}),
	}

	reg.MustRegister(
		m.CustodyCalls,
		m.CustodyLatency,
		m.SessionsCreated,
		m.SessionsRefreshed,
		m.SessionsInvalidated,
		m.SessionsSwept,
		m.Outcomes,
	)
	return m
}
