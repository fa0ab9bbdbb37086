package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	adjustmentsTotal   *prometheus.CounterVec
	calibrationsTotal  *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
	sessionsTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "takeoff",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "takeoff",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "takeoff",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	adjustmentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "takeoff",
			Subsystem: "measurement",
			Name:      "adjustments_total",
			Help:      "Total geometry adjustments by action and outcome.",
		},
		[]string{"service", "action", "status"},
	)
	calibrationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "takeoff",
			Subsystem: "scale",
			Name:      "calibrations_total",
			Help:      "Total scale calibrations by detection method.",
		},
		[]string{"service", "method"},
	)
	confirmationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "takeoff",
			Subsystem: "autocount",
			Name:      "confirmations_total",
			Help:      "Total detection confirmations by mode.",
		},
		[]string{"service", "mode"},
	)
	sessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "takeoff",
			Subsystem: "autocount",
			Name:      "sessions_total",
			Help:      "Total auto-count sessions created by detection method.",
		},
		[]string{"service", "method"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		adjustmentsTotal,
		calibrationsTotal,
		confirmationsTotal,
		sessionsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		adjustmentsTotal:   adjustmentsTotal,
		calibrationsTotal:  calibrationsTotal,
		confirmationsTotal: confirmationsTotal,
		sessionsTotal:      sessionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses resource ids so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/measurements/"):
		return "/v1/measurements/{measurement_id}"
	case strings.HasPrefix(path, "/v1/sessions/"):
		return "/v1/sessions/{session_id}"
	case strings.HasPrefix(path, "/v1/detections/"):
		return "/v1/detections/{detection_id}"
	case strings.HasPrefix(path, "/v1/pages/"):
		return "/v1/pages/{page_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAdjustment(service, action string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if action == "" {
		action = "unknown"
	}
	m.adjustmentsTotal.WithLabelValues(service, action, status).Inc()
}

func (m *HTTPServerMetrics) RecordCalibration(service, method string) {
	if method == "" {
		method = "unknown"
	}
	m.calibrationsTotal.WithLabelValues(service, method).Inc()
}

func (m *HTTPServerMetrics) RecordConfirmation(service, mode string, count int) {
	if count <= 0 {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	m.confirmationsTotal.WithLabelValues(service, mode).Add(float64(count))
}

func (m *HTTPServerMetrics) RecordSessionCreated(service, method string) {
	if method == "" {
		method = "unknown"
	}
	m.sessionsTotal.WithLabelValues(service, method).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
