// Package metrics provides Prometheus metrics for the ReBin Pro service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds all Prometheus metrics for the service.
type Manager struct {
	registry *prometheus.Registry

	// HTTP performance
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// External gateway calls
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	gatewayErrors   *prometheus.CounterVec

	// Business counters
	eventsLogged      prometheus.Counter
	decisionsReturned prometheus.Counter
	ttsFailures       prometheus.Counter
}

// NewManager creates a metrics manager with its own registry.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rebin",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rebin",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		gatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rebin",
			Name:      "gateway_calls_total",
			Help:      "Outbound gateway calls by gateway name.",
		}, []string{"gateway"}),
		gatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rebin",
			Name:      "gateway_call_duration_seconds",
			Help:      "Outbound gateway call latency by gateway name.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"gateway"}),
		gatewayErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rebin",
			Name:      "gateway_errors_total",
			Help:      "Outbound gateway failures by gateway name and fault kind.",
		}, []string{"gateway", "kind"}),
		eventsLogged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rebin",
			Name:      "sort_events_total",
			Help:      "Sort events persisted.",
		}),
		decisionsReturned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rebin",
			Name:      "decisions_total",
			Help:      "Bin decisions returned to clients.",
		}),
		ttsFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rebin",
			Name:      "tts_failures_total",
			Help:      "Speech synthesis attempts that fell back to text.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one completed HTTP request.
func (m *Manager) RecordRequest(route, status string, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, status).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordGatewayCall records one outbound gateway call.
func (m *Manager) RecordGatewayCall(gateway string, elapsed time.Duration, kind string) {
	m.gatewayCalls.WithLabelValues(gateway).Inc()
	m.gatewayDuration.WithLabelValues(gateway).Observe(elapsed.Seconds())
	if kind != "" {
		m.gatewayErrors.WithLabelValues(gateway, kind).Inc()
	}
}

// RecordEventLogged counts one persisted sort event.
func (m *Manager) RecordEventLogged() { m.eventsLogged.Inc() }

// RecordDecisions counts decisions returned to a client.
func (m *Manager) RecordDecisions(n int) { m.decisionsReturned.Add(float64(n)) }

// RecordTTSFailure counts one synthesis fallback.
func (m *Manager) RecordTTSFailure() { m.ttsFailures.Inc() }
