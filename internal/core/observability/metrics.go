package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	geocodeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_results_total",
			Help: "Geocoding lookups by outcome.",
		},
		[]string{"outcome"},
	)

	boundaryCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boundary_cache_total",
			Help: "In-process boundary cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Tessellation result cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	tessellationCells = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tessellation_cells",
			Help:    "Number of cells returned per tessellation.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
		[]string{"res"},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidations_total",
			Help: "Invalidation events processed by op and result.",
		},
		[]string{"op", "result"},
	)

	invalidatedKeys = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invalidated_keys_total",
			Help: "Tessellation cache keys deleted by invalidation events.",
		},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Invalidation consumer failures by kind.",
		},
		[]string{"kind"},
	)

	trackedPlaces = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hotness_tracked_places",
			Help: "Places currently held by the popularity tracker.",
		},
	)

	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Tessellation events dropped because the publish queue was full.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		geocodeResults,
		boundaryCache,
		cacheResults,
		cacheOpTotal,
		redisOpDurationSeconds,
		tessellationCells,
		invalidationsTotal,
		invalidatedKeys,
		kafkaConsumerErrors,
		trackedPlaces,
		eventsDropped,
	}
}

var (
	initMu     sync.Mutex
	registered = map[prometheus.Registerer]bool{}
)

// Init registers the collectors with reg. Without a call to Init the
// collectors still work, they are just not exported anywhere.
// Registering on the same registry twice is a no-op.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	initMu.Lock()
	defer initMu.Unlock()
	if registered[reg] {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
	registered[reg] = true
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

// IncGeocode counts one lookup: found, not_found, unsupported or error.
func IncGeocode(outcome string) {
	geocodeResults.WithLabelValues(outcome).Inc()
}

func IncBoundaryCache(outcome string) {
	boundaryCache.WithLabelValues(outcome).Inc()
}

func IncCacheHit() { cacheResults.WithLabelValues("hit").Inc() }

func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func ObserveTessellation(res, cells int) {
	tessellationCells.WithLabelValues(strconv.Itoa(res)).Observe(float64(cells))
}

func IncEventsDropped() { eventsDropped.Inc() }

func ObserveInvalidation(op string, keys int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	invalidationsTotal.WithLabelValues(op, result).Inc()
	invalidatedKeys.Add(float64(keys))
}

func IncKafkaConsumerError(kind string) { kafkaConsumerErrors.WithLabelValues(kind).Inc() }

func SetTrackedPlaces(n int) { trackedPlaces.Set(float64(n)) }
