package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Store metrics
	Transitions *prometheus.CounterVec

	// Dispatcher metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Poster service metrics
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	BreakerState     prometheus.Gauge

	// Preview metrics
	PollFetches  *prometheus.CounterVec
	PollsRunning prometheus.Gauge

	// Style buffer metrics
	StyleFlushes *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	mu       sync.Mutex
	snapshot Snapshot
}

// Snapshot holds current values for the JSON health endpoint.
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	Operations        int64   `json:"operations"`
	FailedOperations  int64   `json:"failed_operations"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studio_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_session_transitions_total",
				Help: "Session events processed, by event and outcome",
			},
			[]string{"event", "outcome"},
		),

		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_operations_total",
				Help: "User operations dispatched, by operation and status",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studio_operation_duration_seconds",
				Help:    "User operation duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		UpstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_poster_api_calls_total",
				Help: "Calls to the poster service, by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studio_poster_api_duration_seconds",
				Help:    "Poster service call duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),
		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "studio_poster_api_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
		),

		PollFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_preview_fetches_total",
				Help: "Preview status fetches, by result",
			},
			[]string{"result"},
		),
		PollsRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "studio_preview_polling",
				Help: "1 while the preview poller is active",
			},
		),

		StyleFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_style_flushes_total",
				Help: "Style buffer flushes, by trigger",
			},
			[]string{"trigger"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "studio_websocket_connections",
				Help: "Number of open WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_websocket_messages_total",
				Help: "WebSocket messages, by direction and type",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "studio_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.updateUptime()
		h.ServeHTTP(w, r)
	})
}

func (m *Metrics) updateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordHTTPRequest records one studio HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordTransition records one store event and whether it changed state.
func (m *Metrics) RecordTransition(event string, applied bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "dropped"
	}
	m.Transitions.WithLabelValues(event, outcome).Inc()
}

// RecordOperation records a finished dispatcher operation.
func (m *Metrics) RecordOperation(op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Operations++
	if status != "success" {
		m.snapshot.FailedOperations++
	}
	m.mu.Unlock()
}

// RecordUpstreamCall records one poster service round trip.
func (m *Metrics) RecordUpstreamCall(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(endpoint, status).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetBreakerState publishes the circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

// RecordPollFetch records one preview status fetch.
func (m *Metrics) RecordPollFetch(result string) {
	if m == nil {
		return
	}
	m.PollFetches.WithLabelValues(result).Inc()
}

// SetPolling publishes whether the preview poller is active.
func (m *Metrics) SetPolling(active bool) {
	if m == nil {
		return
	}
	if active {
		m.PollsRunning.Set(1)
	} else {
		m.PollsRunning.Set(0)
	}
}

// RecordStyleFlush records a style buffer push.
func (m *Metrics) RecordStyleFlush(trigger string) {
	if m == nil {
		return
	}
	m.StyleFlushes.WithLabelValues(trigger).Inc()
}

// RecordWSMessage records one WebSocket frame.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments active WebSocket connections.
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements active WebSocket connections.
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// GetSnapshot returns current values for the JSON health endpoint.
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
