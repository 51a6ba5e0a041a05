package gin_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragin "github.com/Kaglioster-hub/vrabo/infrastructure/gin"
	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
)

func init() {
	ginpkg.SetMode(ginpkg.TestMode)
}

func newTestRouter(t *testing.T) *ginpkg.Engine {
	t.Helper()

	router := ginpkg.New()
	router.Use(infragin.RecoveryMiddleware(logger.NewNop()))
	router.Use(infragin.RequestIDLoggerMiddleware(logger.NewNop()))
	router.GET("/test", func(c *ginpkg.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/panic", func(*ginpkg.Context) { panic("boom") })
	return router
}

func TestRequestIDLoggerMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	assert.Len(t, w.Header().Get(infragin.RequestIDHeader), 32)
}

func TestRequestIDLoggerMiddleware_PreservesInboundID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(infragin.RequestIDHeader, "trace-abc")
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, req)

	assert.Equal(t, "trace-abc", w.Header().Get(infragin.RequestIDHeader))
}

func TestRequestIDLoggerMiddleware_StoresScopedLogger(t *testing.T) {
	t.Parallel()

	router := ginpkg.New()
	router.Use(infragin.RequestIDLoggerMiddleware(logger.NewNop()))

	var got logger.Logger
	router.GET("/test", func(c *ginpkg.Context) {
		got = logger.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	assert.Equal(t, logger.NewNop(), got)
}

func TestRecoveryMiddleware_Returns500(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	t.Parallel()

	router := ginpkg.New()
	router.Use(infragin.CORSMiddleware(infragin.CORSConfig{AllowedOrigins: []string{"https://vrabo.it"}}))
	router.POST("/api/search", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/search", http.NoBody)
	req.Header.Set("Origin", "https://vrabo.it")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://vrabo.it", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_UnknownOriginGetsNoHeaders(t *testing.T) {
	t.Parallel()

	router := ginpkg.New()
	router.Use(infragin.CORSMiddleware(infragin.CORSConfig{AllowedOrigins: []string{"https://vrabo.it"}}))
	router.GET("/x", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth_DegradedOptionalDependency(t *testing.T) {
	t.Parallel()

	srv := infragin.NewServerBuilder("vrabo", 0).
		WithHealthCheck("redis", infragin.PingChecker(func() error { return errors.New("down") }, false)).
		Build()

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestHealth_UnhealthyRequiredDependency(t *testing.T) {
	t.Parallel()

	srv := infragin.NewServerBuilder("vrabo", 0).
		WithHealthCheck("database", infragin.PingChecker(func() error { return errors.New("down") }, true)).
		Build()

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewServer_TrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		proxies []string
		want    string
	}{
		{"no proxies ignores forwarded header", nil, "198.51.100.7"},
		{"trusted proxy forwards client", []string{"198.51.100.0/24"}, "203.0.113.50"},
		{"other proxy ignored", []string{"10.0.0.1"}, "198.51.100.7"},
		{"invalid entry trusts none", []string{"not-a-cidr"}, "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := infragin.NewConfig("test", 0)
			cfg.TrustedProxies = tt.proxies
			s := infragin.NewServer(cfg, logger.NewNop(), func(r *ginpkg.Engine) {
				r.GET("/ip", func(c *ginpkg.Context) { c.String(http.StatusOK, c.ClientIP()) })
			})

			req := httptest.NewRequest(http.MethodGet, "/ip", http.NoBody)
			req.RemoteAddr = "198.51.100.7:4000"
			req.Header.Set("X-Forwarded-For", "203.0.113.50")
			w := httptest.NewRecorder()
			s.Router().ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}
