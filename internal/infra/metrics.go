package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

const metricsNamespace = "cajapos"

// Metrics holds the process registry. All recording methods are nil-safe so
// services and tests can run without one.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	Arqueos          *prometheus.CounterVec
	Anulaciones      *prometheus.CounterVec
	CreditosFallidos *prometheus.CounterVec
	BreakerEstado    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		Arqueos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "arqueos_total",
			Help:      "Reconciliation finalize attempts by outcome.",
		}, []string{"resultado"}),
		Anulaciones: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "anulaciones_total",
			Help:      "Sale void attempts by outcome.",
		}, []string{"resultado"}),
		CreditosFallidos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "creditos_inventario_fallidos_total",
			Help:      "Inventory credits that failed, by stage.",
		}, []string{"etapa"}),
		BreakerEstado: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "circuit_breaker_state",
			Help:      "0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.Arqueos,
		m.Anulaciones,
		m.CreditosFallidos,
		m.BreakerEstado,
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ArqueoFinalizado(resultado string) {
	if m == nil {
		return
	}
	m.Arqueos.WithLabelValues(resultado).Inc()
}

func (m *Metrics) Anulacion(resultado string) {
	if m == nil {
		return
	}
	m.Anulaciones.WithLabelValues(resultado).Inc()
}

func (m *Metrics) CreditoFallido(etapa string) {
	if m == nil {
		return
	}
	m.CreditosFallidos.WithLabelValues(etapa).Inc()
}

func (m *Metrics) BreakerState(name string, s gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch s {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.BreakerEstado.WithLabelValues(name).Set(v)
}
