package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PriceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gas_price_strategy",
			Name:      "price_requests_total",
			Help:      "Gas price requests, by the source of the baseline price.",
		},
		[]string{"source"},
	)

	NodeQueryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gas_price_strategy",
		Name:      "node_query_errors_total",
	})

	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gas_price_strategy",
			Subsystem: "feed",
			Name:      "fetches_total",
			Help:      "Fee feed refresh attempts.",
		},
		[]string{"feed", "status"},
	)

	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gas_price_strategy",
			Subsystem: "feed",
			Name:      "fetch_duration_seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"feed"},
	)

	OverrideUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gas_price_strategy",
			Name:      "override_updates_total",
		},
		[]string{"origin"},
	)

	APIPanicsCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gas_price_strategy_api_panics_total",
		Help: "Total Panics recovered",
	})

	APIRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gas_price_strategy_api_request_count",
			Help: "The total number of requests served by the API",
		},
		[]string{"method", "status"},
	)

	APIResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gas_price_strategy_api_response_time",
			Help:    "The response time distribution of the API",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "status"},
	)
)
