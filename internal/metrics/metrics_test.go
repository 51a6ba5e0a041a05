package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaglioster-hub/vrabo/infrastructure/circuitbreaker"
	"github.com/Kaglioster-hub/vrabo/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNew_IndependentRegistries(t *testing.T) {
	t.Parallel()

	a := metrics.New()
	b := metrics.New()

	a.ObserveSuggest("hit")
	assert.InDelta(t, 1, testutil.ToFloat64(a.SuggestTotal.WithLabelValues("hit")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.SuggestTotal.WithLabelValues("hit")), 0)
}

func TestMiddleware_LabelsByRoute(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/42", http.NoBody))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/items/:id", "GET", "418")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("unmatched", "GET", "404")), 0)
}

func TestObservers(t *testing.T) {
	t.Parallel()

	m := metrics.New()

	m.ObserveUpstream("hotellook", "ok", 120*time.Millisecond)
	m.ObserveBreakerState("hotellook", circuitbreaker.StateOpen)
	m.ObserveFallback("bnb", "timeout")
	m.ObserveSearchCache(true)
	m.ObserveSearchCache(false)
	m.ObserveTrack("redirect")
	m.ObserveTrackDropped()
	m.ObserveRateLimited("track")
	m.ObserveFlush("postgres", 3, nil)
	m.ObserveFlush("postgres", 2, errors.New("down"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("hotellook", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BreakerState.WithLabelValues("hotellook")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues("bnb", "timeout")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SearchCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SearchCache.WithLabelValues("miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TrackTotal.WithLabelValues("redirect")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TrackDropped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RateLimited.WithLabelValues("track")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.FlushedEvents.WithLabelValues("postgres", "ok")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.FlushedEvents.WithLabelValues("postgres", "error")), 0)
}

func TestHandler_ServesExposition(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveFallback("flight", "empty")

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `vrabo_search_fallbacks_total{category="flight",reason="empty"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
