package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocf_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	HTTPRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocf_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocf_geocode_requests_total",
		Help: "Geocoding provider calls by provider, operation and outcome",
	}, []string{"provider", "op", "outcome"})
	GeocodeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocf_geocode_duration_ms",
		Help:    "Geocoding provider call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 12000},
	}, []string{"provider"})
	GeocodeCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocf_geocode_cache_total",
		Help: "Geocode cache lookups by result (hit, miss, negative)",
	}, []string{"result"})
	SuggestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocf_suggest_total",
		Help: "Suggestion requests by outcome (applied, superseded, stale, error)",
	}, []string{"outcome"})
	SearchResultsTotal = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ocf_search_results",
		Help:    "Number of competitions returned per search",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})
	WarmupRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocf_warmup_runs_total",
		Help: "Scheduled warmup runs by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationMs,
		GeocodeRequestsTotal,
		GeocodeDurationMs,
		GeocodeCacheTotal,
		SuggestTotal,
		SearchResultsTotal,
		WarmupRunsTotal,
	)
}

// Handler exposes the registered collectors for Prometheus scraping.
func Handler() http.Handler { return promhttp.Handler() }

func observe(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDurationMs.WithLabelValues(route).Observe(float64(d.Milliseconds()))
}

// ObserveGeocode records one provider call.
func ObserveGeocode(provider, op, outcome string, d time.Duration) {
	GeocodeRequestsTotal.WithLabelValues(provider, op, outcome).Inc()
	GeocodeDurationMs.WithLabelValues(provider).Observe(float64(d.Milliseconds()))
}
