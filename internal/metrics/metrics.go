// Package metrics holds the Prometheus collectors exported by algoflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconcileTotal counts node index reconciliations by result
	// ("ok", "parse_error", "db_error").
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "algoflow_reconcile_total",
		Help: "Node index reconciliations by result.",
	}, []string{"result"})

	// ReconcileNodes observes how many nodes a successful reconciliation wrote.
	ReconcileNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "algoflow_reconcile_nodes",
		Help:    "Nodes written per reconciliation.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
	})

	// SearchDuration observes search latency by kind
	// ("algorithms", "nodes", "plain", "thorough").
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "algoflow_search_duration_seconds",
		Help:    "Search latency by kind.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"kind"})

	// HTTPRequests counts HTTP requests by method and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "algoflow_http_requests_total",
		Help: "HTTP requests by method and status.",
	}, []string{"method", "status"})
)
