package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "splitdesk_upstream_requests_total",
			Help: "Requests issued to the expense backend, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "splitdesk_upstream_request_duration_seconds",
			Help:    "Latency of expense backend requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func observe(operation string, err error, seconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	upstreamRequests.WithLabelValues(operation, outcome).Inc()
	upstreamDuration.WithLabelValues(operation).Observe(seconds)
}
