package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Kaglioster-hub/vrabo/internal/middleware"
	"github.com/Kaglioster-hub/vrabo/internal/ratelimit"
	"github.com/Kaglioster-hub/vrabo/internal/tracker"
)

type countingObserver struct {
	endpoints []string
}

func (o *countingObserver) ObserveRateLimited(endpoint string) {
	o.endpoints = append(o.endpoints, endpoint)
}

func get(r *gin.Engine, remoteAddr, userAgent string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/track", http.NoBody)
	req.RemoteAddr = remoteAddr
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &countingObserver{}

	r := gin.New()
	r.Use(middleware.RateLimit(ratelimit.NewWindow(2, time.Minute), "track", obs))
	r.GET("/track", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := range 2 {
		w := get(r, "1.2.3.4:1234", "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := get(r, "1.2.3.4:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too Many Requests"}`, w.Body.String())
	assert.Equal(t, []string{"track"}, obs.endpoints)
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.RateLimit(ratelimit.NewWindow(1, time.Minute), "suggest", nil))
	r.GET("/track", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	assert.Equal(t, http.StatusOK, get(r, "1.1.1.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "2.2.2.2:1234", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "1.1.1.1:5678", "").Code)
}

func TestNoStore_SetsHeadersOnRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.NoStore())
	r.Use(middleware.RateLimit(ratelimit.NewWindow(1, time.Minute), "track", nil))
	r.GET("/track", func(c *gin.Context) { c.Status(http.StatusFound) })

	get(r, "1.2.3.4:1", "")
	w := get(r, "1.2.3.4:1", "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate, max-age=0", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
}

func TestBotFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.BotFilter(tracker.NewBotMatcher(tracker.DefaultBotPatterns)))
	r.GET("/track", func(c *gin.Context) {
		if c.GetBool(middleware.IsBotKey) {
			c.String(http.StatusOK, "bot")
			return
		}
		c.String(http.StatusOK, "human")
	})

	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"browser", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "human"},
		{"googlebot", "Googlebot/2.1 (+http://www.google.com/bot.html)", "bot"},
		{"missing user agent", "", "bot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, "1.2.3.4:1", tt.ua)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}
