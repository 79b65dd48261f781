package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote data client metrics
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coinapi_request_duration_seconds",
			Help:    "Upstream market data request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinapi_errors_total",
			Help: "Upstream market data errors by kind (network, decode)",
		},
		[]string{"operation", "kind"},
	)

	// Query cache metrics
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_fetches_total",
			Help: "Fetches issued by the query cache",
		},
		[]string{"resource"},
	)
	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_fetch_errors_total",
			Help: "Fetches that settled with an error",
		},
		[]string{"resource"},
	)
	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_fetch_latency_seconds",
			Help:    "Time from fetch issue to settlement",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)
	FetchesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_fetches_in_flight",
			Help: "Fetches currently in flight across all keys",
		})
	SkippedTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_skipped_ticks_total",
			Help: "Refetch ticks skipped because a fetch was already in flight",
		},
		[]string{"resource"},
	)
	DiscardedResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_discarded_results_total",
			Help: "Fetch results discarded because they were superseded or abandoned",
		},
		[]string{"resource"},
	)
	ActiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_active_subscriptions",
			Help: "Open subscription handles",
		})
	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_evictions_total",
			Help: "Unobserved cache entries evicted after their cache time",
		})

	// Theme metrics
	ThemeToggles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "theme_toggles_total",
			Help: "Theme toggles",
		})

	// Publisher metrics
	PublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publisher_operation_duration_seconds",
			Help:    "Redis publish duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
	PublishErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_errors_total",
			Help: "Redis publish errors",
		},
		[]string{"operation"},
	)
	PublishDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "publisher_dropped_total",
			Help: "Snapshots dropped because the publish buffer was full",
		})
)

func init() {
	// MustRegister panics if registration fails (e.g. duplicate)
	prometheus.MustRegister(
		APIRequestDuration, APIErrors,
		FetchTotal, FetchErrors, FetchLatency, FetchesInFlight,
		SkippedTicks, DiscardedResults, ActiveSubscriptions, CacheEvictions,
		ThemeToggles,
		PublishDuration, PublishErrors, PublishDropped,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Status returns "success" or "error" for metric labels.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
