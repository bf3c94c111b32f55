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

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Feed metrics
	AppsPublished  prometheus.Gauge
	AppsCreated    *prometheus.CounterVec
	LikesToggled   *prometheus.CounterVec
	CommentsAdded  prometheus.Counter
	FollowsToggled *prometheus.CounterVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Generator metrics
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	// Sandbox metrics
	SandboxRenders  prometheus.Counter
	SandboxSessions *prometheus.GaugeVec
	SandboxEvents   *prometheus.CounterVec
	SafetyScores    prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"totalRequests"`
	TotalErrors       int64   `json:"totalErrors"`
	PublishedApps     int64   `json:"publishedApps"`
	ActiveConnections int64   `json:"activeConnections"`
	AvgLatencyMs      float64 `json:"avgLatencyMs"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector backed by its own registry so
// several instances can coexist (one per test server).
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

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appfeed_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appfeed_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appfeed_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Feed metrics
		AppsPublished: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "appfeed_apps_published",
				Help: "Number of published apps in the feed",
			},
		),
		AppsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_apps_created_total",
				Help: "Total number of apps created",
			},
			[]string{"published"},
		),
		LikesToggled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_likes_toggled_total",
				Help: "Total number of like toggles",
			},
			[]string{"action"},
		),
		CommentsAdded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "appfeed_comments_added_total",
				Help: "Total number of comments added",
			},
		),
		FollowsToggled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_follows_toggled_total",
				Help: "Total number of follow toggles",
			},
			[]string{"action"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_service_calls_total",
				Help: "Total number of service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appfeed_service_duration_seconds",
				Help:    "Service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_service_errors_total",
				Help: "Total number of service errors",
			},
			[]string{"service", "method", "error_type"},
		),

		// Generator metrics
		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_generations_total",
				Help: "Total number of app generations",
			},
			[]string{"provider", "status"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "appfeed_generation_duration_seconds",
				Help:    "App generation duration in seconds",
				Buckets: []float64{.01, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),

		// Sandbox metrics
		SandboxRenders: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "appfeed_sandbox_renders_total",
				Help: "Total number of sandbox documents rendered",
			},
		),
		SandboxSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "appfeed_sandbox_sessions",
				Help: "Sandbox sessions by state",
			},
			[]string{"state"},
		),
		SandboxEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_sandbox_events_total",
				Help: "Total number of sandbox bridge messages received",
			},
			[]string{"type"},
		),
		SafetyScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "appfeed_safety_score",
				Help:    "Distribution of computed safety scores",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "appfeed_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appfeed_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "appfeed_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry all metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordAppCreated records a newly created app
func (m *Metrics) RecordAppCreated(published bool) {
	label := "false"
	if published {
		label = "true"
	}
	m.AppsCreated.WithLabelValues(label).Inc()
}

// SetAppsPublished sets the number of published apps
func (m *Metrics) SetAppsPublished(count int) {
	m.AppsPublished.Set(float64(count))
	m.mu.Lock()
	m.snapshot.PublishedApps = int64(count)
	m.mu.Unlock()
}

// RecordLike records a like toggle
func (m *Metrics) RecordLike(liked bool) {
	action := "unlike"
	if liked {
		action = "like"
	}
	m.LikesToggled.WithLabelValues(action).Inc()
}

// RecordComment records an added comment
func (m *Metrics) RecordComment() {
	m.CommentsAdded.Inc()
}

// RecordFollow records a follow toggle
func (m *Metrics) RecordFollow(following bool) {
	action := "unfollow"
	if following {
		action = "follow"
	}
	m.FollowsToggled.WithLabelValues(action).Inc()
}

// RecordGeneration records a generator call
func (m *Metrics) RecordGeneration(provider, status string, duration time.Duration) {
	m.Generations.WithLabelValues(provider, status).Inc()
	m.GenerationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordSandboxRender records a rendered sandbox document
func (m *Metrics) RecordSandboxRender() {
	m.SandboxRenders.Inc()
}

// SetSandboxSessions sets the session gauge for one state
func (m *Metrics) SetSandboxSessions(state string, count int) {
	m.SandboxSessions.WithLabelValues(state).Set(float64(count))
}

// RecordSandboxEvent records a bridge message from an iframe
func (m *Metrics) RecordSandboxEvent(msgType string) {
	m.SandboxEvents.WithLabelValues(msgType).Inc()
}

// ObserveSafetyScore records a computed safety score
func (m *Metrics) ObserveSafetyScore(score float64) {
	m.SafetyScores.Observe(score)
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON stats endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
