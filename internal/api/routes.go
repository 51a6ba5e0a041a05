// Package api wires the HTTP routes of the service.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Kaglioster-hub/vrabo/internal/handler"
	"github.com/Kaglioster-hub/vrabo/internal/metrics"
	"github.com/Kaglioster-hub/vrabo/internal/middleware"
	"github.com/Kaglioster-hub/vrabo/internal/ratelimit"
	"github.com/Kaglioster-hub/vrabo/internal/tracker"
)

// Limiter endpoint labels.
const (
	endpointSearch  = "search"
	endpointSuggest = "suggest"
	endpointTrack   = "track"
)

// Handlers groups the endpoint handlers.
type Handlers struct {
	Search  *handler.SearchHandler
	Suggest *handler.SuggestHandler
	Track   *handler.TrackHandler
}

// Limiters holds one per-IP limiter per endpoint.
type Limiters struct {
	Search  ratelimit.Limiter
	Suggest ratelimit.Limiter
	Track   ratelimit.Limiter
}

// SetupRoutes configures the API and metrics routes. Health routes are
// registered by the infrastructure gin builder.
func SetupRoutes(
	router *gin.Engine,
	h Handlers,
	limiters Limiters,
	bots *tracker.BotMatcher,
	m *metrics.Metrics,
) {
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api")
	api.Use(m.Middleware())

	// Any method reaches the handler so non-POST requests get a JSON 405.
	api.Any("/search",
		middleware.RateLimit(limiters.Search, endpointSearch, m),
		h.Search.Search,
	)

	api.GET("/suggest",
		middleware.RateLimit(limiters.Suggest, endpointSuggest, m),
		h.Suggest.Suggest,
	)

	track := api.Group("/track")
	track.Use(middleware.NoStore())
	track.OPTIONS("", h.Track.Preflight)
	track.GET("",
		middleware.RateLimit(limiters.Track, endpointTrack, m),
		middleware.BotFilter(bots),
		h.Track.Track,
	)
}
