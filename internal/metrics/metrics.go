// Package metrics exposes notification counters for Prometheus scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the processor's counters on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	sent       *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	failed     *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slackproc",
			Name:      "alerts_sent_total",
			Help:      "Notifications delivered to Slack.",
		}, []string{"kind"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slackproc",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts held back by a cooldown or reminder window.",
		}, []string{"kind"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slackproc",
			Name:      "delivery_failures_total",
			Help:      "Notifications that Slack did not accept.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.sent, m.suppressed, m.failed)
	return m
}

func (m *Metrics) Sent(kind string) {
	if m != nil {
		m.sent.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Suppressed(kind string) {
	if m != nil {
		m.suppressed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Failed(kind string) {
	if m != nil {
		m.failed.WithLabelValues(kind).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
