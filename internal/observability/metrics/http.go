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

	"github.com/kirillkom/openplag/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisMatches  *prometheus.HistogramVec
	analysisMaxScore *prometheus.HistogramVec
	degradedTotal    *prometheus.CounterVec
	archiveTotal     *prometheus.CounterVec
	embeddingCache   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openplag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openplag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "openplag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openplag",
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Completed analyses by severity and status.",
		},
		[]string{"service", "endpoint", "severity", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openplag",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "endpoint"},
	)
	analysisMatches := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openplag",
			Subsystem: "analysis",
			Name:      "matches",
			Help:      "Matches above threshold per analysis, before truncation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	analysisMaxScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openplag",
			Subsystem: "analysis",
			Name:      "max_score",
			Help:      "Highest similarity score per analysis.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "endpoint"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openplag",
			Subsystem: "analysis",
			Name:      "degraded_total",
			Help:      "Analyses with incomplete evidence by reason.",
		},
		[]string{"service", "reason"},
	)
	archiveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openplag",
			Subsystem: "archive",
			Name:      "submissions_total",
			Help:      "Archive submissions by outcome (inserted or duplicate).",
		},
		[]string{"service", "outcome"},
	)
	embeddingCache := newEmbeddingCacheCounter()

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		analysesTotal,
		analysisDuration,
		analysisMatches,
		analysisMaxScore,
		degradedTotal,
		archiveTotal,
		embeddingCache,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		analysesTotal:    analysesTotal,
		analysisDuration: analysisDuration,
		analysisMatches:  analysisMatches,
		analysisMaxScore: analysisMaxScore,
		degradedTotal:    degradedTotal,
		archiveTotal:     archiveTotal,
		embeddingCache:   embeddingCache,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EmbeddingCache is handed to the cached embedder so lookups show up on /metrics.
func (m *HTTPServerMetrics) EmbeddingCache() *prometheus.CounterVec {
	return m.embeddingCache
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

func normalizePath(path string) string {
	switch {
	case path == "/v1/archive/stats":
		return path
	case strings.HasPrefix(path, "/v1/archive/"):
		return "/v1/archive/{entry_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnalysis(service, endpoint string, report *domain.AnalysisReport, duration time.Duration) {
	if report == nil {
		return
	}
	m.analysesTotal.WithLabelValues(service, endpoint, string(report.Severity), string(report.Status)).Inc()
	m.analysisDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	m.analysisMatches.WithLabelValues(service, endpoint).Observe(float64(report.TotalMatches))
	m.analysisMaxScore.WithLabelValues(service, endpoint).Observe(report.MaxScore)
	for _, reason := range report.Degraded {
		m.degradedTotal.WithLabelValues(service, reason).Inc()
	}
}

func (m *HTTPServerMetrics) RecordArchive(service string, inserted bool) {
	outcome := "inserted"
	if !inserted {
		outcome = "duplicate"
	}
	m.archiveTotal.WithLabelValues(service, outcome).Inc()
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
