package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linerag"

// Outcome labels for EventHandled.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global default registerer. All methods are nil-safe.
type Metrics struct {
	registry       *prometheus.Registry
	events         *prometheus.CounterVec
	upstream       *prometheus.HistogramVec
	storeCreations prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Webhook events handled, by event kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		upstream: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Duration of Gemini API calls in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"op"},
		),
		storeCreations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_creations_total",
				Help:      "File search stores created upstream",
			},
		),
	}
}

func (m *Metrics) EventHandled(kind, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveUpstream(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) StoreCreated() {
	if m == nil {
		return
	}
	m.storeCreations.Inc()
}

// Registry exposes the underlying registry for scraping and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
