package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snowcache_cache_hits_total",
			Help: "Total number of fetches served from a cache artifact.",
		},
	)
	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snowcache_cache_misses_total",
			Help: "Total number of fetches that required a warehouse round-trip.",
		},
	)
	queriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snowcache_queries_total",
			Help: "Total number of queries executed against the warehouse.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snowcache_query_duration_seconds",
			Help:    "Warehouse query latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	exportRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snowcache_export_rows_total",
			Help: "Total number of rows bulk-written to warehouse tables.",
		},
	)
	exportFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snowcache_export_failures_total",
			Help: "Total number of failed bulk writes.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		cacheHitsTotal,
		cacheMissesTotal,
		queriesTotal,
		queryDurationSeconds,
		exportRowsTotal,
		exportFailuresTotal,
	)
}

func ObserveCacheHit() {
	cacheHitsTotal.Inc()
}

func ObserveCacheMiss() {
	cacheMissesTotal.Inc()
}

func ObserveQuery(elapsed time.Duration) {
	queriesTotal.Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveExport(rows int64) {
	if rows > 0 {
		exportRowsTotal.Add(float64(rows))
	}
}

func IncrementExportFailure() {
	exportFailuresTotal.Inc()
}
