// Package metrics exposes Prometheus collectors for the watch engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's collectors so they can be registered on any
// registry (the default one in production, a private one in tests).
type Metrics struct {
	ChecksTotal       *prometheus.CounterVec
	CheckDuration     *prometheus.HistogramVec
	FetchTierTotal    *prometheus.CounterVec
	BrowserRelaunches prometheus.Counter
	ActiveEntities    *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "checks_total",
			Help:      "Completed entity checks by kind and result.",
		}, []string{"kind", "result"}),
		CheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vigil",
			Name:      "check_duration_seconds",
			Help:      "Wall time of one entity check.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"kind"}),
		FetchTierTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "fetch_tier_total",
			Help:      "Successful fetches by pipeline tier.",
		}, []string{"tier"}),
		BrowserRelaunches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "browser_relaunches_total",
			Help:      "Times a dead headless browser was replaced.",
		}),
		ActiveEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vigil",
			Name:      "active_entities",
			Help:      "Entities with an active timer, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ChecksTotal,
			m.CheckDuration,
			m.FetchTierTotal,
			m.BrowserRelaunches,
			m.ActiveEntities,
		)
	}
	return m
}

// Nop returns unregistered collectors for tests that do not assert on them.
func Nop() *Metrics {
	return New(nil)
}
