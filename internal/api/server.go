package api

import (
	"context"
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	infragin "github.com/Kaglioster-hub/vrabo/infrastructure/gin"
	infralogger "github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/config"
	"github.com/Kaglioster-hub/vrabo/internal/metrics"
	"github.com/Kaglioster-hub/vrabo/internal/tracker"
)

const (
	defaultIdleTimeout = 60 * time.Second
	healthPingTimeout  = 2 * time.Second
)

// Dependencies are the collaborators the server routes to. DB and Redis are
// optional and only add health checks when set.
type Dependencies struct {
	Handlers Handlers
	Limiters Limiters
	Bots     *tracker.BotMatcher
	Metrics  *metrics.Metrics
	DB       *sql.DB
	Redis    redis.UniversalClient
}

// NewServer creates the HTTP server.
func NewServer(cfg *config.Config, deps Dependencies, log infralogger.Logger) *infragin.Server {
	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithCORSOrigins(cfg.Service.CORSOrigins).
		WithTrustedProxies(cfg.Service.TrustedProxies).
		WithTimeouts(cfg.Service.ReadTimeout, cfg.Service.WriteTimeout, defaultIdleTimeout).
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, deps.Handlers, deps.Limiters, deps.Bots, deps.Metrics)
		})

	// Both stores are optional: a failing ping degrades, it never fails health.
	if deps.DB != nil {
		db := deps.DB
		builder.WithHealthCheck("database", infragin.PingChecker(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
			defer cancel()
			return db.PingContext(ctx)
		}, false))
	}
	if deps.Redis != nil {
		rdb := deps.Redis
		builder.WithHealthCheck("redis", infragin.PingChecker(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
			defer cancel()
			return rdb.Ping(ctx).Err()
		}, false))
	}

	return builder.Build()
}
