package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: slow dashboard renders.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// NDBC feed downloads by feed (txt, srad) and status. Watch for: error vs success ratio.
	FeedFetchesTotal *prometheus.CounterVec

	// NDBC feed latency. Watch for: p95 > 5s (upstream degradation).
	FeedFetchDuration *prometheus.HistogramVec

	// Retry attempts for feed downloads. Zero unless retries are configured.
	FeedRetriesTotal prometheus.Counter

	// Dashboard import runs by trigger (startup, manual, periodic) and status.
	RefreshesTotal *prometheus.CounterVec

	// Wall time of one full import (fetch, normalize, fill, index).
	RefreshDuration prometheus.Histogram

	// Refresh callers that joined an import already in flight.
	RefreshCoalescedTotal prometheus.Counter

	// Snapshot cache hits. Misses show up as RefreshesTotal{trigger="cache_miss"}.
	CacheHitsTotal *prometheus.CounterVec

	// Snapshot cache errors by operation and category.
	CacheErrorsTotal *prometheus.CounterVec

	// Snapshot cache latency by operation and status.
	CacheOperationDurationSeconds *prometheus.HistogramVec

	// Stale snapshots served after a failed import.
	StaleSnapshotServesTotal prometheus.Counter

	// Seconds between now and the newest read observation at the last import.
	DataAgeSeconds prometheus.Gauge

	// Latest chopiness score at the last import.
	ChopinessScore prometheus.Gauge

	// Observations after resampling, by track (read, interpolated).
	ObservationsByTrack *prometheus.GaugeVec

	// Refresh requests denied by the rate limiter.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state for feed downloads (0 closed, 1 open, 2 half-open).
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Station pages by outcome (ok, skipped, seed_failed). Watch for: stations with only skips.
	StationDaysTotal *prometheus.CounterVec

	// Records accumulated per station.
	StationRecordsTotal *prometheus.CounterVec

	// trackedStations is built from config; other station ids are labelled "other".
	trackedStationsMu sync.RWMutex
	trackedStations   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	FeedFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedFetchesTotal",
			Help: "Total number of NDBC feed downloads",
		},
		[]string{"feed", "status"},
	)
	FeedFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedFetchDurationSeconds",
			Help:    "NDBC feed download latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"feed", "status"},
	)
	FeedRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feedRetriesTotal",
			Help: "Total number of retry attempts for feed downloads",
		},
	)
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refreshesTotal",
			Help: "Dashboard import runs by trigger and status",
		},
		[]string{"trigger", "status"},
	)
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refreshDurationSeconds",
			Help:    "Duration of one dashboard import run",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	RefreshCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refreshCoalescedTotal",
			Help: "Refresh callers that waited on an import already in flight",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of snapshot cache hits",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Snapshot cache errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	CacheOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cacheOperationDurationSeconds",
			Help:    "Snapshot cache operation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation", "status"},
	)
	StaleSnapshotServesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "staleSnapshotServesTotal",
			Help: "Previous snapshots served because an import failed",
		},
	)
	DataAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataAgeSeconds",
			Help: "Seconds since the newest read buoy observation at the last import",
		},
	)
	ChopinessScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chopinessScore",
			Help: "Latest chopiness score (unitless)",
		},
	)
	ObservationsByTrack = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "observationsByTrack",
			Help: "Observations in the last snapshot by track",
		},
		[]string{"track"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of refresh requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	StationDaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationDaysTotal",
			Help: "Station history pages by outcome",
		},
		[]string{"station", "outcome"},
	)
	StationRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationRecordsTotal",
			Help: "Station history records accumulated",
		},
		[]string{"station"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		FeedFetchesTotal, FeedFetchDuration, FeedRetriesTotal,
		RefreshesTotal, RefreshDuration, RefreshCoalescedTotal,
		CacheHitsTotal, CacheErrorsTotal, CacheOperationDurationSeconds, StaleSnapshotServesTotal,
		DataAgeSeconds, ChopinessScore, ObservationsByTrack,
		RateLimitDeniedTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		StationDaysTotal, StationRecordsTotal,
	)
}

// SetTrackedStations sets the allow-list for station labels. Stations outside it are labelled "other".
func SetTrackedStations(stations []string) {
	trackedStationsMu.Lock()
	defer trackedStationsMu.Unlock()
	trackedStations = make(map[string]struct{}, len(stations))
	for _, s := range stations {
		trackedStations[normalizeStationForMetrics(s)] = struct{}{}
	}
}

// MetricStationLabel returns the station label for metrics: the normalized id when
// tracked, "other" otherwise.
func MetricStationLabel(station string) string {
	s := normalizeStationForMetrics(station)
	trackedStationsMu.RLock()
	_, ok := trackedStations[s] // nil map read is safe in Go
	trackedStationsMu.RUnlock()
	if ok {
		return s
	}
	return "other"
}

// RecordStationDay records one station page outcome.
func RecordStationDay(station, outcome string) {
	StationDaysTotal.WithLabelValues(MetricStationLabel(station), outcome).Inc()
}

// RecordCircuitBreakerTransition records a state change for component.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// SetCircuitBreakerStateGauge sets the current breaker state for component.
func SetCircuitBreakerStateGauge(component string, state int) {
	CircuitBreakerState.WithLabelValues(component).Set(float64(state))
}

func normalizeStationForMetrics(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
