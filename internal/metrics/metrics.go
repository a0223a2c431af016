package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storebot"

var (
	registerOnce sync.Once

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Token and cart cache lookups by kind and result (hit, miss, stale)",
	}, []string{"kind", "result"})
	cacheRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_refreshes_total",
		Help:      "Remote refreshes triggered by the cache manager by kind",
	}, []string{"kind"})
	remoteRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_requests_total",
		Help:      "Requests sent to the commerce and Telegram APIs by endpoint and status code",
	}, []string{"endpoint", "code"})
	remoteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_request_duration_seconds",
		Help:      "Remote API request latency by endpoint",
		Buckets:   prometheus.ExponentialBuckets(0.02, 2, 10),
	}, []string{"endpoint"})
	cartOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_outcomes_total",
		Help:      "Cart mutation outcomes by operation and outcome",
	}, []string{"operation", "outcome"})
	botUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bot_updates_total",
		Help:      "Inbound bot updates by conversation state and result",
	}, []string{"state", "result"})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(cacheLookups, cacheRefreshes, remoteRequests, remoteDuration, cartOutcomes, botUpdates)
	})
}

func IncCacheLookup(kind, result string) {
	cacheLookups.WithLabelValues(kind, result).Inc()
}

func IncCacheRefresh(kind string) {
	cacheRefreshes.WithLabelValues(kind).Inc()
}

func IncCartOutcome(operation, outcome string) {
	cartOutcomes.WithLabelValues(operation, outcome).Inc()
}

func IncBotUpdate(state, result string) {
	botUpdates.WithLabelValues(state, result).Inc()
}

// ObserveRemoteRequest records one commerce API call. code 0 means the
// request never produced a response.
func ObserveRemoteRequest(endpoint string, code int, d time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	remoteRequests.WithLabelValues(endpoint, label).Inc()
	remoteDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
