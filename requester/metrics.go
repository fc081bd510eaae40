package requester

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_beacon_request_attempts_total",
		Help: "Beacon request attempts issued, by node pool.",
	}, []string{"pool"})
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_beacon_request_retries_total",
		Help: "Failed beacon request attempts that will be retried, by node pool.",
	}, []string{"pool"})
	requestFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_beacon_request_failures_total",
		Help: "Beacon requests that failed after exhausting retries, by node pool.",
	}, []string{"pool"})
)
