package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of cart transitions applied",
	}, []string{"op"})

	CartPersistFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Total number of failed cart snapshot writes or deletes",
	}, []string{"op"})

	CartRehydrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_rehydrations_total",
		Help: "Cart loads from durable storage at startup",
	}, []string{"outcome"})

	CartItemsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cart_items",
		Help: "Current number of units in the cart",
	})

	CatalogFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_fetches_total",
		Help: "Catalog fetches by kind and outcome",
	}, []string{"kind", "outcome"})

	CatalogStaleDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_stale_completions_discarded_total",
		Help: "Fetch completions dropped because a newer request was issued",
	}, []string{"kind"})

	CatalogFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_fetch_latency_seconds",
		Help:    "Latency of catalog fetches against the shop API",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by path (local, delegated) and outcome",
	}, []string{"path", "outcome"})

	CheckoutsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_confirmed_total",
		Help: "Total number of confirmed checkouts",
	})

	CheckoutEventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_event_publish_failures_total",
		Help: "Checkout confirmations whose event could not be published",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
