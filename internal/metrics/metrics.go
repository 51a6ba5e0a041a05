// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kaglioster-hub/vrabo/infrastructure/circuitbreaker"
)

const namespace = "vrabo"

// Metrics holds all collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     *prometheus.CounterVec

	// Upstreams
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec

	// Endpoints
	Fallbacks     *prometheus.CounterVec
	SearchCache   *prometheus.CounterVec
	SuggestTotal  *prometheus.CounterVec
	TrackTotal    *prometheus.CounterVec
	TrackDropped  prometheus.Counter
	FlushedEvents *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, including the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{registry: reg}
	initHTTPMetrics(m, promauto.With(reg))
	initUpstreamMetrics(m, promauto.With(reg))
	initEndpointMetrics(m, promauto.With(reg))
	return m
}

func initHTTPMetrics(m *Metrics, f promauto.Factory) {
	m.RequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	m.RequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"route", "method"})

	m.RateLimited = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected with 429 by endpoint",
	}, []string{"endpoint"})
}

func initUpstreamMetrics(m *Metrics, f promauto.Factory) {
	m.UpstreamCalls = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_calls_total",
		Help:      "Upstream API calls by upstream and outcome",
	}, []string{"upstream", "outcome"})

	m.UpstreamDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_call_duration_seconds",
		Help:      "Upstream call latency including retries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
	}, []string{"upstream"})

	m.BreakerState = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "upstream_breaker_state",
		Help:      "Circuit breaker state per upstream (0 closed, 1 open, 2 half-open)",
	}, []string{"upstream"})
}

func initEndpointMetrics(m *Metrics, f promauto.Factory) {
	m.Fallbacks = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_fallbacks_total",
		Help:      "Searches served with synthetic offers, by category and reason",
	}, []string{"category", "reason"})

	m.SearchCache = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_cache_lookups_total",
		Help:      "Live provider cache lookups by result",
	}, []string{"result"})

	m.SuggestTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggest_requests_total",
		Help:      "Suggest requests by outcome",
	}, []string{"outcome"})

	m.TrackTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "track_requests_total",
		Help:      "Track requests by outcome",
	}, []string{"outcome"})

	m.TrackDropped = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "track_events_dropped_total",
		Help:      "Track events dropped because the buffer was full",
	})

	m.FlushedEvents = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "track_events_flushed_total",
		Help:      "Track events handed to each writer, by result",
	}, []string{"writer", "result"})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency per matched route.
// Unmatched routes are grouped under "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// ObserveUpstream implements upstream.Observer.
func (m *Metrics) ObserveUpstream(upstream, outcome string, elapsed time.Duration) {
	m.UpstreamCalls.WithLabelValues(upstream, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(upstream).Observe(elapsed.Seconds())
}

// ObserveBreakerState implements upstream.Observer.
func (m *Metrics) ObserveBreakerState(upstream string, state circuitbreaker.State) {
	m.BreakerState.WithLabelValues(upstream).Set(float64(state))
}

// ObserveFallback implements search.Observer.
func (m *Metrics) ObserveFallback(category, reason string) {
	m.Fallbacks.WithLabelValues(category, reason).Inc()
}

// ObserveSearchCache implements search.Observer.
func (m *Metrics) ObserveSearchCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCache.WithLabelValues(result).Inc()
}

// ObserveSuggest implements suggest.Observer.
func (m *Metrics) ObserveSuggest(outcome string) {
	m.SuggestTotal.WithLabelValues(outcome).Inc()
}

// ObserveTrack counts one track request outcome.
func (m *Metrics) ObserveTrack(outcome string) {
	m.TrackTotal.WithLabelValues(outcome).Inc()
}

// ObserveTrackDropped counts an event lost to a full buffer.
func (m *Metrics) ObserveTrackDropped() {
	m.TrackDropped.Inc()
}

// ObserveRateLimited counts a 429 on endpoint.
func (m *Metrics) ObserveRateLimited(endpoint string) {
	m.RateLimited.WithLabelValues(endpoint).Inc()
}

// ObserveFlush implements storage.Observer.
func (m *Metrics) ObserveFlush(writer string, events int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FlushedEvents.WithLabelValues(writer, result).Add(float64(events))
}
