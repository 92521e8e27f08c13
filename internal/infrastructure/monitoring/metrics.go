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

// Control-plane request outcomes.
const (
	OutcomeReplied = "replied"
	OutcomeTimeout = "timeout"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsSpawned  *prometheus.CounterVec
	SpawnFailures    prometheus.Counter
	PtyBytesRead     prometheus.Counter
	PtyReadersActive prometheus.Gauge

	// Control-plane metrics
	ControlRequests   *prometheus.CounterVec
	ControlDuration   *prometheus.HistogramVec
	ControlOverwrites prometheus.Counter
	ControlConns      prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Event bus metrics
	SubscribersEvicted prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests   int64 `json:"total_requests"`
	TotalErrors     int64 `json:"total_errors"`
	ControlReplied  int64 `json:"control_replied"`
	ControlTimeouts int64 `json:"control_timeouts"`
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		stop:      make(chan struct{}),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wslterm_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wslterm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wslterm_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wslterm_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wslterm_sessions_active",
				Help: "Number of live pty sessions",
			},
		),
		SessionsSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wslterm_sessions_spawned_total",
				Help: "Total number of pty sessions spawned",
			},
			[]string{"shell"},
		),
		SpawnFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wslterm_spawn_failures_total",
				Help: "Total number of failed spawn calls",
			},
		),
		PtyBytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wslterm_pty_bytes_read_total",
				Help: "Total bytes read from pty masters",
			},
		),
		PtyReadersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wslterm_pty_readers_active",
				Help: "Number of running reader pumps",
			},
		),

		ControlRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wslterm_control_requests_total",
				Help: "Total number of control-plane requests",
			},
			[]string{"action", "outcome"},
		),
		ControlDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wslterm_control_round_trip_seconds",
				Help:    "Control-plane round trip duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"action"},
		),
		ControlOverwrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wslterm_control_slot_overwrites_total",
				Help: "Pending replies orphaned by a newer control request",
			},
		),
		ControlConns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wslterm_control_connections",
				Help: "Number of open control-plane connections",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wslterm_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wslterm_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		SubscribersEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wslterm_subscribers_evicted_total",
				Help: "Event subscribers disconnected because their queue was full",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wslterm_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Handler exposes the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Close stops the uptime updater
func (m *Metrics) Close() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.stop:
			return
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// RecordSpawn records a spawn attempt for the given shell kind
func (m *Metrics) RecordSpawn(shell string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SpawnFailures.Inc()
		return
	}
	m.SessionsSpawned.WithLabelValues(shell).Inc()
}

// AddPtyBytes adds n bytes read from a pty master
func (m *Metrics) AddPtyBytes(n int) {
	if m == nil {
		return
	}
	m.PtyBytesRead.Add(float64(n))
}

// IncReaders marks a reader pump as started
func (m *Metrics) IncReaders() {
	if m == nil {
		return
	}
	m.PtyReadersActive.Inc()
}

// DecReaders marks a reader pump as finished
func (m *Metrics) DecReaders() {
	if m == nil {
		return
	}
	m.PtyReadersActive.Dec()
}

// RecordControlRequest records one control-plane round trip
func (m *Metrics) RecordControlRequest(action, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ControlRequests.WithLabelValues(action, outcome).Inc()
	m.ControlDuration.WithLabelValues(action).Observe(duration.Seconds())

	m.mu.Lock()
	switch outcome {
	case OutcomeReplied:
		m.snapshot.ControlReplied++
	case OutcomeTimeout:
		m.snapshot.ControlTimeouts++
	}
	m.mu.Unlock()
}

// IncControlOverwrites counts a pending reply replaced before it was answered
func (m *Metrics) IncControlOverwrites() {
	if m == nil {
		return
	}
	m.ControlOverwrites.Inc()
}

// IncControlConns increments open control connections
func (m *Metrics) IncControlConns() {
	if m == nil {
		return
	}
	m.ControlConns.Inc()
}

// DecControlConns decrements open control connections
func (m *Metrics) DecControlConns() {
	if m == nil {
		return
	}
	m.ControlConns.Dec()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// IncSubscribersEvicted counts a subscriber disconnected for falling behind
func (m *Metrics) IncSubscribersEvicted() {
	if m == nil {
		return
	}
	m.SubscribersEvicted.Inc()
}

// Snapshot returns a copy of the JSON counters
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
