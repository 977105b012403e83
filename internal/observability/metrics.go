package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig holds configuration for Prometheus metrics middleware
type MetricsConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Namespace for metrics (e.g., "hiring_edge")
	Namespace string

	// Subsystem for metrics (e.g., "http")
	Subsystem string

	// Buckets for response time histogram
	Buckets []float64

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// SkipPaths defines paths that should not be metered
	SkipPaths []string
}

// Metrics holds Prometheus metric collectors
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec
}

// DefaultMetricsConfig returns a default metrics configuration
func DefaultMetricsConfig(namespace string) *MetricsConfig {
	return &MetricsConfig{
		Logger:    nil,
		Namespace: namespace,
		Subsystem: "http",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		Skipper:   nil,
		SkipPaths: []string{"/metrics", "/health", "/ready"},
	}
}

// NewMetrics creates and registers Prometheus metrics
func NewMetrics(config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultMetricsConfig("app")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initializing prometheus metrics",
		"namespace", config.Namespace,
		"subsystem", config.Subsystem,
	)

	return &Metrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   config.Buckets,
			},
			[]string{"method", "path", "status"},
		),
		responseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7), // 100B to 100MB
			},
			[]string{"method", "path", "status"},
		),
		activeRequests: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "requests_active",
				Help:      "Number of active HTTP requests",
			},
			[]string{"method", "path"},
		),
	}
}

// Middleware returns a Prometheus metrics middleware
func (m *Metrics) Middleware(config *MetricsConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultMetricsConfig("app")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware if skipper function returns true
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			// Skip metrics for specific paths
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Label with the inbound path so rewrites don't fragment series
			path := r.URL.Path
			method := r.Method

			m.activeRequests.WithLabelValues(method, path).Inc()
			defer m.activeRequests.WithLabelValues(method, path).Dec()

			start := time.Now()
			rw := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			m.requestsTotal.WithLabelValues(method, path, status).Inc()
			m.requestDuration.WithLabelValues(method, path, status).Observe(duration)
			m.responseSize.WithLabelValues(method, path, status).Observe(float64(rw.bytesWritten))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// MetricsHandler returns a Prometheus metrics HTTP handler
// Endpoint: GET /metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RoutingMetrics holds routing-specific metrics
type RoutingMetrics struct {
	DecisionsTotal *prometheus.CounterVec
	TenantLookups  *prometheus.CounterVec
	UpstreamErrors *prometheus.CounterVec
}

// NewRoutingMetrics creates routing metrics
func NewRoutingMetrics(namespace string) *RoutingMetrics {
	return &RoutingMetrics{
		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "decisions_total",
				Help:      "Routing decisions by outcome (allow, redirect, rewrite)",
			},
			[]string{"outcome"},
		),
		TenantLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "tenant_lookups_total",
				Help:      "Tenant directory lookups by result",
			},
			[]string{"result"}, // found, unknown, error
		),
		UpstreamErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "upstream_errors_total",
				Help:      "Failed proxy calls to the backend by endpoint",
			},
			[]string{"endpoint"},
		),
	}
}

// ObserveDecision records one routing decision outcome
func (rm *RoutingMetrics) ObserveDecision(outcome string) {
	rm.DecisionsTotal.WithLabelValues(outcome).Inc()
}
