package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fastygo/shipops/domain"
)

// Metrics holds the workflow collectors on a dedicated registry.
type Metrics struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	conflicts     prometheus.Counter
	auditFailures *prometheus.CounterVec
	bufferSize    prometheus.GaugeFunc
}

// New registers the collectors. bufferSize may be nil.
func New(bufferSize func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shipops",
				Name:      "transport_transitions_total",
				Help:      "Transport leg transitions by action and result",
			},
			[]string{"action", "result"},
		),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shipops",
			Name:      "transport_version_conflicts_total",
			Help:      "Transport writes rejected because the task changed since it was read",
		}),
		auditFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shipops",
				Name:      "audit_write_failures_total",
				Help:      "Committed transitions whose audit entry could not be written",
			},
			[]string{"action"},
		),
	}

	m.registry.MustRegister(
		m.transitions,
		m.conflicts,
		m.auditFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if bufferSize != nil {
		m.bufferSize = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "shipops",
			Name:      "buffer_items",
			Help:      "Operations waiting in the offline buffer",
		}, bufferSize)
		m.registry.MustRegister(m.bufferSize)
	}

	return m
}

func (m *Metrics) ObserveTransition(action domain.LegAction, result string) {
	m.transitions.WithLabelValues(string(action), result).Inc()
}

func (m *Metrics) ObserveConflict() {
	m.conflicts.Inc()
}

func (m *Metrics) ObserveAuditFailure(action domain.LegAction) {
	m.auditFailures.WithLabelValues(string(action)).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
