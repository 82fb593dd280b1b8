package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the HTTP layer records into.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec

	AuthFailuresTotal   *prometheus.CounterVec
	AuthSessionsTotal   *prometheus.CounterVec
	StoreMutationsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storekode",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path", "status"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekode",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekode",
			Name:      "auth_failures_total",
			Help:      "Requests rejected by the authentication gate, by reason.",
		}, []string{"reason"}),

		AuthSessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekode",
			Name:      "auth_sessions_total",
			Help:      "Signup and signin attempts, by kind and outcome.",
		}, []string{"kind", "outcome"}),

		StoreMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekode",
			Name:      "store_mutations_total",
			Help:      "Successful store writes, by operation.",
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
		m.AuthFailuresTotal,
		m.AuthSessionsTotal,
		m.StoreMutationsTotal,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
