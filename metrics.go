package main

import (
	"strconv"

	"github.com/global-nexus/newscache/assetcache"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	statusCodes *prometheus.CounterVec

	assetCacheHits      prometheus.Counter
	assetCacheMisses    prometheus.Counter
	networkOnlyRequests prometheus.Counter
	offlineFallbacks    prometheus.Counter
	upstreamErrors      prometheus.Counter

	cacheSize  prometheus.GaugeFunc
	cacheItems prometheus.GaugeFunc

	precachedAssets prometheus.Gauge

	backendUp prometheus.Gauge
)

func init() {
	statusCodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_codes",
			Help: "Distribution by status codes counter",
		},
		[]string{"code"},
	)

	assetCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_cache_hits",
			Help: "Number of requests served from the asset cache",
		},
	)

	assetCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_cache_misses",
			Help: "Number of cacheable requests that required an upstream fetch",
		},
	)

	networkOnlyRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "network_only_requests",
			Help: "Number of requests matching network-only patterns, bypassing the cache",
		},
	)

	offlineFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_fallbacks",
			Help: "Number of navigations served the precached shell because upstream was unreachable",
		},
	)

	upstreamErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_errors",
			Help: "Number of failed upstream fetches",
		},
	)

	precachedAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "precached_assets",
			Help: "Number of shell manifest assets cached during the last install",
		},
	)

	backendUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backend_up",
			Help: "Whether the news backend answered the last heartbeat",
		},
	)
}

func observeStatusCode(code int) {
	statusCodes.With(prometheus.Labels{"code": strconv.Itoa(code)}).Inc()
}

func registerMetrics(c assetcache.Cache) {
	cacheSize = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "asset_cache_size_bytes",
			Help: "Size of the asset cache",
		},
		func() float64 { return float64(c.Stats().Size) },
	)
	cacheItems = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "asset_cache_items",
			Help: "Number of items in the asset cache",
		},
		func() float64 { return float64(c.Stats().Items) },
	)

	prometheus.MustRegister(statusCodes, assetCacheHits, assetCacheMisses,
		networkOnlyRequests, offlineFallbacks, upstreamErrors,
		precachedAssets, cacheSize, cacheItems, backendUp)
}
