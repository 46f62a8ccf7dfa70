package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 increases on POST /weather (provider bound).
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Weatherstack call rate by outcome. Watch for: error vs success ratio.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Weatherstack latency. Watch for: p99 near the 10s client timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Provider failures by category (timeout, network, invalid_location, misconfigured, ...).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Circuit breaker state for the live provider: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState prometheus.Gauge

	// Records created, labelled by provider mode (live or synthetic).
	RecordsCreatedTotal *prometheus.CounterVec

	RecordsDeletedTotal prometheus.Counter

	// Store file read/write failures. Any increase means in-memory state is ahead of disk.
	StorePersistFailuresTotal *prometheus.CounterVec

	// Time to rewrite the store file.
	StoreSaveDuration prometheus.Histogram

	// Rate limit denials (429).
	RateLimitDeniedTotal prometheus.Counter

	storeGaugeOnce sync.Once
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
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of Weatherstack API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Weatherstack API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Weather provider failures by category",
		},
		[]string{"category"},
	)
	CircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Weather provider circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
	RecordsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherRecordsCreatedTotal",
			Help: "Total number of weather records created",
		},
		[]string{"mode"},
	)
	RecordsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherRecordsDeletedTotal",
			Help: "Total number of weather records deleted",
		},
	)
	StorePersistFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storePersistFailuresTotal",
			Help: "Record store file failures by operation (load, save)",
		},
		[]string{"op"},
	)
	StoreSaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storeSaveDurationSeconds",
			Help:    "Time to rewrite the record store file",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		CircuitBreakerState,
		RecordsCreatedTotal, RecordsDeletedTotal,
		StorePersistFailuresTotal, StoreSaveDuration,
		RateLimitDeniedTotal,
	)
}

// RegisterStoreGauge exposes the current record count. Only the first call registers.
func RegisterStoreGauge(count func() int) {
	storeGaugeOnce.Do(func() {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "weatherRecordsStored",
				Help: "Number of weather records currently held by the store",
			},
			func() float64 { return float64(count()) },
		))
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
