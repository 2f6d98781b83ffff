package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records inbound request counts and latency for /metrics.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return NewHTTPMetricsWithRegisterer(prometheus.DefaultRegisterer, cfg)
}

func NewHTTPMetricsWithRegisterer(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	constLabels := constLabelsFor(cfg)

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "servicedesk_http_requests_total",
		Help:        "HTTP requests by route, method and status code.",
		ConstLabels: constLabels,
	}, []string{"route", "method", "status_code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "servicedesk_http_request_duration_seconds",
		Help:        "HTTP request latency by route and method.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"route", "method"})

	return &HTTPMetrics{
		requests: registerCollector(registerer, requests),
		duration: registerCollector(registerer, duration),
	}
}

// GinMiddleware observes every request once the handler chain returns.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

func constLabelsFor(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "servicedesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// registerCollector returns the already registered collector when the
// same metric was registered before, e.g. by a second fx app in tests.
func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return collector
}
