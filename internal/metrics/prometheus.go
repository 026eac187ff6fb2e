package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docqa_query_duration_seconds",
			Help:    "Time spent answering a query",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"cache"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_query_total",
			Help: "Queries processed by outcome",
		},
		[]string{"status"},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_search_total",
			Help: "Semantic searches by outcome",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docqa_cache_hits_total",
			Help: "Query cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docqa_cache_misses_total",
			Help: "Query cache misses",
		},
	)

	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docqa_cache_swept_total",
			Help: "Cache entries removed by sweeps",
		},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docqa_cache_entries",
			Help: "Live cache entries at the last stats read",
		},
	)

	DocumentsRanked = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docqa_documents_ranked",
			Help:    "Corpus size scored per cache miss",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
	)

	DocumentsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docqa_documents_total",
			Help: "Documents in the store",
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			QueryDuration,
			QueryTotal,
			SearchTotal,
			CacheHits,
			CacheMisses,
			CacheEvictions,
			CacheEntries,
			DocumentsRanked,
			DocumentsTotal,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
