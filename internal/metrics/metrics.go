// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "asnlookup"

const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupFallback = "fallback"

	ReloadSuccess   = "success"
	ReloadFailure   = "failure"
	ReloadUnchanged = "unchanged"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "Address lookups by result.",
	}, []string{"result"})

	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reloads_total",
		Help:      "Dataset reload checks by outcome.",
	}, []string{"outcome"})

	reloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reload_duration_seconds",
		Help:      "Time spent building an index generation.",
		Buckets:   prometheus.ExponentialBucketsRange(0.01, 120, 12),
	})

	generation = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "generation",
		Help:      "ID of the published index generation.",
	})

	indexRanges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "index_ranges",
		Help:      "Ranges in the published index generation.",
	})

	malformedLines = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "index_malformed_lines",
		Help:      "Malformed dataset lines skipped while building the published generation.",
	})

	bulkBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bulk_batch_size",
		Help:      "Addresses per bulk request.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
	})
)

func RecordLookup(result string) {
	lookups.WithLabelValues(result).Inc()
}

func RecordReload(outcome string, took time.Duration) {
	reloads.WithLabelValues(outcome).Inc()
	if outcome == ReloadSuccess {
		reloadDuration.Observe(took.Seconds())
	}
}

// RecordGeneration updates the gauges describing the published generation.
func RecordGeneration(id uint64, ranges, malformed int) {
	generation.Set(float64(id))
	indexRanges.Set(float64(ranges))
	malformedLines.Set(float64(malformed))
}

func RecordBulkBatch(size int) {
	bulkBatchSize.Observe(float64(size))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
