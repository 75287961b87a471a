package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	nuts "github.com/vaudience/go-nuts"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmapi_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmapi_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pmapi_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	StoreCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmapi_store_calls_total",
			Help: "Total number of record store calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmapi_events_total",
			Help: "Total number of monitored events",
		},
		[]string{"event"},
	)
)

// Config holds monitoring configuration
type Config struct {
	MetricsEnabled bool
}

// Service provides monitoring functionality
type Service struct {
	config Config
}

// NewService creates a new monitoring service
func NewService(config Config) *Service {
	return &Service{
		config: config,
	}
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	nuts.L.Infof("[Monitoring] Event %s recorded at %v with labels: %v", eventName, time.Now().UTC(), labels)
	if s == nil || !s.config.MetricsEnabled {
		return
	}
	EventsTotal.WithLabelValues(eventName).Inc()
}

// ObserveStoreCall counts one record store call.
func ObserveStoreCall(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StoreCallsTotal.WithLabelValues(operation, outcome).Inc()
}

// Middleware records request count and latency per route template.
func (s *Service) Middleware(next http.Handler) http.Handler {
	if s == nil || !s.config.MetricsEnabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		m := httpsnoop.CaptureMetrics(next, w, r)

		path := RoutePath(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(m.Code)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(m.Duration.Seconds())
	})
}

// Handler exposes the registered metrics, a 404 when metrics are disabled.
func (s *Service) Handler() http.Handler {
	if s == nil || !s.config.MetricsEnabled {
		return http.NotFoundHandler()
	}
	return promhttp.Handler()
}

// RoutePath returns the matched mux route template, or the raw path when no route matched.
func RoutePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
