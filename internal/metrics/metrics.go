package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/rfsocket-core/internal/events"
)

const namespace = "rfsocket"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal   *prometheus.CounterVec   // By action and result
	commandDuration *prometheus.HistogramVec // By action
	registryEvents  *prometheus.CounterVec   // By event type
	sockets         prometheus.Gauge

	httpRequests *prometheus.CounterVec   // By method, route and status
	httpDuration *prometheus.HistogramVec // By method and route
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "commands_total",
			Help:      "Transmissions attempted, by action and result",
		}, []string{"action", "result"}),

		// The transmitter repeats each code several times, so a single
		// command typically takes hundreds of milliseconds.
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "command_duration_seconds",
			Help:      "Time spent in the transmitter per command",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"action"}),

		registryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "events_total",
			Help:      "Socket registry changes, by event type",
		}, []string{"type"}),

		sockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sockets",
			Help:      "Sockets currently registered",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests served, by method, route and status code",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.commandsTotal,
		m.commandDuration,
		m.registryEvents,
		m.sockets,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// SetSockets sets the socket gauge, typically once at startup from the
// loaded registry. Later changes arrive as events.
func (m *Metrics) SetSockets(n int) {
	m.sockets.Set(float64(n))
}

// Handle implements events.Sink.
func (m *Metrics) Handle(_ context.Context, e events.Event) error {
	switch e.Type {
	case events.TypeSocketCreated:
		m.sockets.Inc()
		m.registryEvents.WithLabelValues(string(e.Type)).Inc()
	case events.TypeSocketDeleted:
		m.sockets.Dec()
		m.registryEvents.WithLabelValues(string(e.Type)).Inc()
	}

	if c := e.Command; c != nil {
		result := ResultSuccess
		if !c.Success {
			result = ResultFailure
		}
		m.commandsTotal.WithLabelValues(string(c.Action), result).Inc()
		m.commandDuration.WithLabelValues(string(c.Action)).Observe((time.Duration(c.DurationMS) * time.Millisecond).Seconds())
	}
	return nil
}

// ObserveHTTP records one served request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
