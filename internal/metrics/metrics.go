// Package metrics exposes Prometheus collectors for the connectivity and
// auth core. Collectors are package-level and registered via promauto;
// emission never alters control flow in the instrumented components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesTotal counts reachability probes by result ("up" / "down").
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_probes_total",
			Help: "Total number of reachability probes",
		},
		[]string{"result"},
	)

	// StatusFlips counts connectivity transitions by the new state.
	StatusFlips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_status_flips_total",
			Help: "Total number of connectivity status transitions",
		},
		[]string{"to"},
	)

	// RetryAttempts counts failed attempts inside the retry executor by
	// classified kind.
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_retry_attempts_total",
			Help: "Total number of failed attempts seen by the retry executor",
		},
		[]string{"kind"},
	)

	// TokenRefreshes counts mid-retry credential refreshes by result.
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_token_refreshes_total",
			Help: "Total number of mid-retry token refreshes",
		},
		[]string{"result"},
	)

	// OfflineFallbacks counts authenticate calls answered from the offline
	// credential cache.
	OfflineFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorlink_offline_fallbacks_total",
			Help: "Total number of authentications served from the offline cache",
		},
	)

	// Resyncs counts background resync attempts by result.
	Resyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_resyncs_total",
			Help: "Total number of background resync attempts",
		},
		[]string{"result"},
	)
)
