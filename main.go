package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kaglioster-hub/vrabo/infrastructure/circuitbreaker"
	infraconfig "github.com/Kaglioster-hub/vrabo/infrastructure/config"
	infrahttp "github.com/Kaglioster-hub/vrabo/infrastructure/http"
	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/infrastructure/profiling"
	infraredis "github.com/Kaglioster-hub/vrabo/infrastructure/redis"
	"github.com/Kaglioster-hub/vrabo/infrastructure/retry"
	"github.com/Kaglioster-hub/vrabo/infrastructure/signer"
	"github.com/Kaglioster-hub/vrabo/internal/affiliate"
	"github.com/Kaglioster-hub/vrabo/internal/api"
	"github.com/Kaglioster-hub/vrabo/internal/config"
	"github.com/Kaglioster-hub/vrabo/internal/fx"
	"github.com/Kaglioster-hub/vrabo/internal/handler"
	"github.com/Kaglioster-hub/vrabo/internal/metrics"
	"github.com/Kaglioster-hub/vrabo/internal/provider"
	"github.com/Kaglioster-hub/vrabo/internal/ratelimit"
	"github.com/Kaglioster-hub/vrabo/internal/search"
	"github.com/Kaglioster-hub/vrabo/internal/storage"
	"github.com/Kaglioster-hub/vrabo/internal/suggest"
	"github.com/Kaglioster-hub/vrabo/internal/tracker"
	"github.com/Kaglioster-hub/vrabo/internal/upstream"

	_ "github.com/lib/pq"
)

const (
	dbPingTimeout   = 5 * time.Second
	fxMemoryEntries = 256
	backoffFactor   = 2.0
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	// PostgreSQL and Redis are optional. Without them events only reach
	// the log and FX rates stay in process memory.
	var db *sql.DB
	if cfg.Database.Enabled() {
		db, err = connectDatabase(cfg, log)
		if err != nil {
			log.Error("Failed to connect to database", logger.Error(err))
			return 1
		}
		defer func() { _ = db.Close() }()
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = infraredis.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Error("Failed to connect to redis", logger.Error(err))
			return 1
		}
		defer func() { _ = rdb.Close() }()
		log.Info("Redis connected", logger.String("address", cfg.Redis.Address))
	}

	return runServer(cfg, log, db, rdb)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(infraconfig.GetConfigPath("config.yml"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

func createLogger(cfg *config.Config) (logger.Logger, error) {
	logCfg := cfg.Logging
	logCfg.Development = logCfg.Development || cfg.Service.Debug
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

func connectDatabase(cfg *config.Config, log logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)
	return db, nil
}

func newUpstreamClient(cfg *config.Config, log logger.Logger, m *metrics.Metrics) *upstream.Client {
	u := cfg.Upstream
	return upstream.New(
		infrahttp.NewClient(infrahttp.ClientConfig{}),
		upstream.Config{
			Retry: retry.Config{
				MaxAttempts:  u.MaxAttempts,
				InitialDelay: u.InitialBackoff,
				MaxDelay:     u.MaxBackoff,
				Multiplier:   backoffFactor,
				Jitter:       u.MaxJitter,
			},
			AttemptTimeout: u.AttemptTimeout,
			Breaker: circuitbreaker.Config{
				FailureThreshold: u.BreakerFailures,
				SuccessThreshold: u.BreakerSuccesses,
				Timeout:          u.BreakerCooldown,
			},
		},
		log,
		upstream.WithObserver(m),
	)
}

func newRateStore(cfg *config.Config, rdb *redis.Client) fx.RateStore {
	if rdb != nil {
		return fx.NewRedisStore(rdb, cfg.FX.RedisPrefix)
	}
	return fx.NewMemoryStore(fxMemoryEntries)
}

func newTrackStore(cfg *config.Config, log logger.Logger, db *sql.DB, buf *storage.Buffer) (*storage.Store, func(), error) {
	writers := []storage.Writer{storage.NewLogWriter(log)}
	closeFile := func() {}

	if cfg.Track.LogFile != "" {
		fw, err := storage.NewFileWriter(cfg.Track.LogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open track log file: %w", err)
		}
		writers = append(writers, fw)
		closeFile = func() { _ = fw.Close() }
	}
	if db != nil {
		writers = append(writers, storage.NewPostgresWriter(db))
	}

	store := storage.NewStore(buf, storage.StoreConfig{
		FlushInterval:  cfg.Track.FlushInterval,
		FlushThreshold: cfg.Track.FlushThreshold,
	}, log, writers...)
	return store, closeFile, nil
}

// runServer builds every dependency and serves until shutdown.
func runServer(cfg *config.Config, log logger.Logger, db *sql.DB, rdb *redis.Client) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiling.Start(ctx, cfg.Service.PprofAddr, log)

	m := metrics.New()
	client := newUpstreamClient(cfg, log, m)

	converter := fx.NewConverter(client, newRateStore(cfg, rdb), fx.Config{
		BaseURL: cfg.FX.URL,
		APIKey:  cfg.FX.APIKey,
		TTL:     cfg.FX.TTL,
	}, log)

	links := affiliate.FromEnvironment(cfg.Affiliates)
	links.WarnMissing(log)

	registry := provider.NewRegistry(provider.Deps{
		Fetcher:    client,
		FX:         converter,
		Links:      links,
		Logger:     log,
		HotelsURL:  cfg.Search.HotelsURL,
		FlightsURL: cfg.Search.FlightsURL,
		Token:      cfg.Search.TravelpayoutsToken,
	})

	searchSvc := search.NewService(registry, provider.NewSynthetic(links), search.Config{
		DefaultCurrency: cfg.Search.DefaultCurrency,
		DefaultLimit:    cfg.Search.DefaultLimit,
		MaxLimit:        cfg.Search.MaxLimit,
		CacheTTL:        cfg.Search.CacheTTL,
		CacheSize:       cfg.Search.CacheSize,
		Scoring:         cfg.Search.Scoring,
	}, log, search.WithObserver(m))

	suggestSvc := suggest.NewService(client, suggest.Config{
		URL:          cfg.Suggest.URL,
		DefaultLimit: cfg.Suggest.DefaultLimit,
		MaxLimit:     cfg.Suggest.MaxLimit,
		CacheTTL:     cfg.Suggest.CacheTTL,
		CacheSize:    cfg.Suggest.CacheSize,
	}, log, suggest.WithObserver(m))

	trackSigner := signer.New(cfg.Track.HMACSecret)
	if !trackSigner.Enabled() {
		log.Warn("Track signature verification disabled, no HMAC secret configured")
	}
	policy := tracker.NewPolicy(trackSigner, cfg.Track.AllowList, cfg.Track.DenyList)

	buf := storage.NewBuffer(cfg.Track.BufferSize)
	store, closeFile, err := newTrackStore(cfg, log, db, buf)
	if err != nil {
		log.Error("Failed to create track store", logger.Error(err))
		return 1
	}
	defer closeFile()
	store.SetObserver(m)
	store.Start()
	defer store.Stop()

	searchLimiter := ratelimit.NewBucket(cfg.RateLimit.Search.RPS, cfg.RateLimit.Search.Burst)
	suggestLimiter := ratelimit.NewWindow(cfg.RateLimit.Suggest.Max, cfg.RateLimit.Suggest.Window)
	trackLimiter := ratelimit.NewWindow(cfg.RateLimit.Track.Max, cfg.RateLimit.Track.Window)
	go searchLimiter.Run(ctx)
	go suggestLimiter.Run(ctx)
	go trackLimiter.Run(ctx)
	go searchSvc.Run(ctx)
	go suggestSvc.Run(ctx)

	deps := api.Dependencies{
		Handlers: api.Handlers{
			Search:  handler.NewSearchHandler(searchSvc),
			Suggest: handler.NewSuggestHandler(suggestSvc),
			Track:   handler.NewTrackHandler(policy, buf, log, m),
		},
		Limiters: api.Limiters{
			Search:  searchLimiter,
			Suggest: suggestLimiter,
			Track:   trackLimiter,
		},
		Bots:    tracker.NewBotMatcher(cfg.Track.BotPatterns),
		Metrics: m,
		DB:      db,
	}
	if rdb != nil {
		deps.Redis = rdb
	}

	server := api.NewServer(cfg, deps, log)

	log.Info("VRABO starting",
		logger.Int("port", cfg.Service.Port),
		logger.String("version", cfg.Service.Version),
		logger.Bool("database", db != nil),
		logger.Bool("redis", rdb != nil),
	)

	if err := server.RunWithGracefulShutdown(ctx); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("VRABO exited cleanly")
	return 0
}
