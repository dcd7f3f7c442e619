// Package metrics provides Prometheus metrics for the exchange.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		},
		[]string{"path"},
	)

	// Trade Metrics
	TradeOffersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_trade_offers_total",
			Help: "Trade offer transitions",
		},
		[]string{"event"}, // registered, accepted, declined, withdrawn, invalidated
	)

	TradePostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_trade_posts_total",
			Help: "Trade post lifecycle events",
		},
		[]string{"event"}, // created, removed, exchanged
	)

	TradeAcceptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tcg_trade_accept_duration_seconds",
			Help:    "Time taken by the accept transaction, including lock wait",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	TradeAcceptConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_trade_accept_conflicts_total",
			Help: "Accepts rejected because the offer was no longer pending",
		},
	)

	// Auth Metrics
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_auth_attempts_total",
			Help: "Login, registration and refresh attempts",
		},
		[]string{"action", "result"}, // result: "success" or "failed"
	)

	// Catalog Metrics
	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_catalog_cache_hits_total",
			Help: "Collectible cache hit count",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_catalog_cache_misses_total",
			Help: "Collectible cache miss count",
		},
	)

	// Market Metrics, refreshed by each snapshot
	MarketCollectors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_market_collectors",
			Help: "Registered collectors",
		},
	)

	MarketCollectionEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_market_collection_entries",
			Help: "Collection entries across all collectors",
		},
	)

	MarketActivePosts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_market_active_posts",
			Help: "Trade posts currently listed",
		},
	)

	MarketPendingOffers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_market_pending_offers",
			Help: "Offers in SENT status",
		},
	)

	MarketCompletedExchanges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcg_market_completed_exchanges",
			Help: "Exchanges recorded in history",
		},
	)

	// Image Metrics
	ImageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcg_image_uploads_total",
			Help: "Image uploads by backend and result",
		},
		[]string{"backend", "result"},
	)

	ActivityLogErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tcg_activity_log_errors_total",
			Help: "Activity events that could not be written",
		},
	)
)
