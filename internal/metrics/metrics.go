package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "popmap_requests_total",
		Help: "Total API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "popmap_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	NotFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "popmap_departement_not_found_total",
		Help: "Total lookups of unknown departement ids",
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "popmap_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "popmap_redis_misses_total",
		Help: "Total redis cache misses",
	})
	DatasetReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "popmap_dataset_reloads_total",
		Help: "Dataset reloads by result",
	}, []string{"result"})
	DatasetDepartements = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "popmap_dataset_departements",
		Help: "Number of departements in the current dataset",
	})
	LayerCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "popmap_layer_cache_hits_total",
		Help: "Projected layer cache hits",
	})
	LayerCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "popmap_layer_cache_misses_total",
		Help: "Projected layer cache misses",
	})
	LayerBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "popmap_layer_build_duration_ms",
		Help:    "Time to project all regions for one viewport",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "popmap_sessions_active",
		Help: "Open live map sessions",
	})
	SessionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "popmap_session_events_total",
		Help: "Client events handled by live sessions",
	}, []string{"type"})
	SelectionChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "popmap_selection_changes_total",
		Help: "Selection changes by origin",
	}, []string{"origin"})
	AnimationsSupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "popmap_animations_superseded_total",
		Help: "Animations replaced before completion",
	})
	RemoteFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "popmap_remote_fetch_total",
		Help: "Remote statistics endpoint fetches by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDurationMs,
		NotFoundTotal,
		RedisHitsTotal,
		RedisMissesTotal,
		DatasetReloadsTotal,
		DatasetDepartements,
		LayerCacheHitsTotal,
		LayerCacheMissesTotal,
		LayerBuildDurationMs,
		SessionsActive,
		SessionEventsTotal,
		SelectionChangesTotal,
		AnimationsSupersededTotal,
		RemoteFetchTotal,
	)
}

// Handler：Prometheus 抓取端点
func Handler() http.Handler { return promhttp.Handler() }
