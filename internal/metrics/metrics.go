// Package metrics records Prometheus metrics for the rule service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	compilations       *prometheus.CounterVec
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	activeRule         *prometheus.GaugeVec
}

// New creates the collectors in a new registry, with metric names prefixed by namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		compilations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compilations_total",
				Help:      "Total number of rule compilations, by result",
			},
			[]string{"result"},
		),

		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of rule evaluations, by result",
			},
			[]string{"result"},
		),

		evaluationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule evaluations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12), // 1µs to ~4s
			},
		),

		activeRule: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_rule_info",
				Help:      "Set to 1 for the id of the active rule",
			},
			[]string{"id"},
		),
	}
}

// ObserveCompilation counts a compilation with the given result, e.g. "ok" or "syntax_error".
func (m *Metrics) ObserveCompilation(result string) {
	if m == nil {
		return
	}
	m.compilations.WithLabelValues(result).Inc()
}

// ObserveEvaluation counts an evaluation and records how long it took.
func (m *Metrics) ObserveEvaluation(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(result).Inc()
	m.evaluationDuration.Observe(d.Seconds())
}

// SetActiveRule records id as the active rule, replacing any previous one.
// An empty id clears it.
func (m *Metrics) SetActiveRule(id string) {
	if m == nil {
		return
	}
	m.activeRule.Reset()
	if id != "" {
		m.activeRule.WithLabelValues(id).Set(1)
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
