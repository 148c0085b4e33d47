// Package metrics exposes the bot's Prometheus collectors and adapts
// them onto domain.Hooks so the core stays free of metrics imports.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/granalabs/parada/pkg/domain"
)

// Metrics bundles the collectors. Each instance carries its own
// registry so embedding hosts never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	fetches      *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parada_events_total",
				Help: "Inbound events by kind and the dialog state they arrived in.",
			},
			[]string{"kind", "state"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parada_transitions_total",
				Help: "Dialog state transitions.",
			},
			[]string{"from", "to"},
		),
		fetches: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parada_fetch_duration_seconds",
				Help:    "Upstream feed call duration by endpoint and outcome.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parada_cache_lookups_total",
				Help: "Gateway cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
	}
	m.registry.MustRegister(m.events, m.transitions, m.fetches, m.cacheLookups)
	return m
}

// Hooks returns domain hooks feeding these collectors.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnEvent: func(ctx context.Context, userID string, kind domain.EventKind, state domain.DialogState) {
			m.events.WithLabelValues(string(kind), string(state)).Inc()
		},
		OnTransition: func(ctx context.Context, from, to domain.DialogState) {
			m.transitions.WithLabelValues(string(from), string(to)).Inc()
		},
		OnFetch: func(ctx context.Context, endpoint, outcome string, elapsed time.Duration) {
			m.fetches.WithLabelValues(endpoint, outcome).Observe(elapsed.Seconds())
		},
		OnCache: func(ctx context.Context, cache string, result domain.CacheResult) {
			m.cacheLookups.WithLabelValues(cache, string(result)).Inc()
		},
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
