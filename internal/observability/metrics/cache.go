package metrics

import "github.com/prometheus/client_golang/prometheus"

func newEmbeddingCacheCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openplag",
			Subsystem: "embedding_cache",
			Name:      "lookups_total",
			Help:      "Embedding cache lookups by result (hit or miss).",
		},
		[]string{"result"},
	)
}
