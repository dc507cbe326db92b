package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks the cache warming consumer of archive events.
type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	embeddingCache  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openplag",
			Subsystem: "worker",
			Name:      "warm_total",
			Help:      "Total warmed archive entries by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "openplag",
			Subsystem: "worker",
			Name:      "warm_duration_seconds",
			Help:      "Archive entry warm duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "openplag",
			Subsystem: "worker",
			Name:      "warm_in_flight",
			Help:      "Number of in-flight warm tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	embeddingCache := newEmbeddingCacheCounter()

	registry.MustRegister(processTotal, processDuration, processInFlight, embeddingCache)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		embeddingCache:  embeddingCache,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) EmbeddingCache() *prometheus.CounterVec {
	return m.embeddingCache
}

func (m *WorkerMetrics) StartEntry() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishEntry(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
