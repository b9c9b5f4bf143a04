// Package metrics exposes Prometheus metrics for the overlay server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the overlay server's registry and collectors.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	fetches             *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	transitions         *prometheus.CounterVec
}

// New creates a fresh registry with HTTP and overlay metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests served",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "overlay",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "fetches_total",
		Help:      "Feature fetches by overlay and result",
	}, []string{"overlay", "result"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "overlay",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of feature fetches",
		Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"overlay"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Name:      "transitions_total",
		Help:      "Overlay lifecycle transitions by target state",
	}, []string{"overlay", "state"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		fetches,
		fetchDuration,
		transitions,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		fetches:             fetches,
		fetchDuration:       fetchDuration,
		transitions:         transitions,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveFetch records one feature fetch.
func (m *Metrics) ObserveFetch(overlay string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.fetches.WithLabelValues(overlay, result).Inc()
	m.fetchDuration.WithLabelValues(overlay).Observe(duration.Seconds())
}

// IncTransition counts an overlay entering state.
func (m *Metrics) IncTransition(overlay, state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(overlay, state).Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
