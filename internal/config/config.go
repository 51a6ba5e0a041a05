// Package config holds the VRABO service configuration.
package config

import (
	"time"

	"gopkg.in/yaml.v3"

	infraconfig "github.com/Kaglioster-hub/vrabo/infrastructure/config"
	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
)

// Default configuration values.
const (
	defaultServiceName = "vrabo"
	defaultServicePort = 3000
	defaultVersion     = "0.1.0"
	defaultCurrency    = "EUR"

	defaultResultLimit   = 12
	defaultMaxLimit      = 50
	defaultCacheTTL      = 60 * time.Second
	defaultCacheSize     = 500
	defaultHotelsURL     = "https://engine.hotellook.com/api/v2/cache.json"
	defaultFlightsURL    = "https://api.travelpayouts.com/v1/prices/cheap"
	defaultSuggestURL    = "https://autocomplete.travelpayouts.com/places2"
	defaultSuggestTTL    = 5 * time.Minute
	defaultFXURL         = "https://api.exchangerate.host/latest"
	defaultFXTTL         = time.Hour
	defaultFXRedisPrefix = "vrabo:fx:"

	defaultMaxAttempts      = 3
	defaultInitialBackoff   = 400 * time.Millisecond
	defaultMaxBackoff       = 5 * time.Second
	defaultMaxJitter        = 100 * time.Millisecond
	defaultAttemptTimeout   = 4 * time.Second
	defaultBreakerFailures  = 5
	defaultBreakerSuccesses = 1
	defaultBreakerCooldown  = 30 * time.Second

	defaultBufferSize     = 1000
	defaultFlushInterval  = time.Second
	defaultFlushThreshold = 100

	defaultSuggestMax    = 30
	defaultSuggestWindow = 5 * time.Second
	defaultTrackMax      = 50
	defaultTrackWindow   = 10 * time.Second
	defaultSearchRPS     = 5.0
	defaultSearchBurst   = 20
)

// Config holds the application configuration.
type Config struct {
	Service    ServiceConfig              `yaml:"service"`
	Logging    logger.Config              `yaml:"logging"`
	Search     SearchConfig               `yaml:"search"`
	Suggest    SuggestConfig              `yaml:"suggest"`
	Track      TrackConfig                `yaml:"track"`
	Upstream   UpstreamConfig             `yaml:"upstream"`
	FX         FXConfig                   `yaml:"fx"`
	RateLimit  RateLimitConfig            `yaml:"rate_limit"`
	Database   infraconfig.DatabaseConfig `yaml:"database"`
	Redis      infraconfig.RedisConfig    `yaml:"redis"`
	Affiliates map[string]string          `yaml:"affiliates"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Port        int      `env:"VRABO_PORT" yaml:"port"`
	Debug       bool     `env:"APP_DEBUG"  yaml:"debug"`
	CORSOrigins []string `env:"CORS_ORIGINS" yaml:"cors_origins"`
	// TrustedProxies may set the client IP through X-Forwarded-For.
	TrustedProxies []string      `env:"TRUSTED_PROXIES" yaml:"trusted_proxies" validate:"dive,cidr|ip"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	// PprofAddr serves /debug/pprof when set, e.g. "localhost:6060".
	PprofAddr string `env:"PPROF_ADDR" yaml:"pprof_addr"`
}

// SearchConfig configures POST /api/search.
type SearchConfig struct {
	DefaultCurrency string        `env:"DEFAULT_CURRENCY" yaml:"default_currency"`
	DefaultLimit    int           `yaml:"default_limit"    validate:"min=1,max=50"`
	MaxLimit        int           `yaml:"max_limit"        validate:"min=1,max=50"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheSize       int           `yaml:"cache_size"       validate:"min=1"`
	HotelsURL       string        `yaml:"hotels_url"       validate:"url"`
	FlightsURL      string        `yaml:"flights_url"      validate:"url"`
	// TravelpayoutsToken authenticates the hotel and flight price APIs.
	TravelpayoutsToken string        `env:"TRAVELPAYOUTS_KEY" yaml:"travelpayouts_token"`
	Scoring            ScoringConfig `yaml:"scoring"`
}

// ScoringConfig holds the ranking heuristic constants. They are business
// tuning knobs, not derived values.
type ScoringConfig struct {
	DefaultStyle     string  `yaml:"default_style"`
	DefaultRisk      string  `yaml:"default_risk"`
	DefaultBudget    float64 `yaml:"default_budget"     validate:"gt=0"`
	StyleBonus       float64 `yaml:"style_bonus"`
	RiskBonus        float64 `yaml:"risk_bonus"`
	BudgetRatioMin   float64 `yaml:"budget_ratio_min"   validate:"gt=0"`
	BudgetRatioMax   float64 `yaml:"budget_ratio_max"   validate:"gtefield=BudgetRatioMin"`
	DatesBoost       float64 `yaml:"dates_boost"        validate:"gt=0"`
	RatingBase       float64 `yaml:"rating_base"`
	RatingWeight     float64 `yaml:"rating_weight"`
	PopularityWeight float64 `yaml:"popularity_weight"`
	PopularityBase   float64 `yaml:"popularity_base"`
}

// SuggestConfig configures GET /api/suggest.
type SuggestConfig struct {
	URL          string        `yaml:"url"           validate:"url"`
	DefaultLimit int           `yaml:"default_limit" validate:"min=1,max=50"`
	MaxLimit     int           `yaml:"max_limit"     validate:"min=1,max=50"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheSize    int           `yaml:"cache_size"    validate:"min=1"`
}

// TrackConfig configures GET /api/track.
type TrackConfig struct {
	AllowList        []string `env:"TRACK_ALLOW_LIST"        yaml:"allow_list"`
	DenyList         []string `env:"TRACK_DENY_LIST"         yaml:"deny_list"`
	HMACSecret       string   `env:"TRACK_HMAC_SECRET"       yaml:"hmac_secret"`
	RequireSignature bool     `env:"TRACK_REQUIRE_SIGNATURE" yaml:"require_signature"`
	// LogFile mirrors every event as a JSON line. Empty disables it.
	LogFile        string        `env:"TRACK_LOG_FILE" yaml:"log_file"`
	BufferSize     int           `yaml:"buffer_size"     validate:"min=1"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	FlushThreshold int           `yaml:"flush_threshold" validate:"min=1"`
	// BotPatterns are lower-case user agent fragments flagged as bots.
	BotPatterns []string `yaml:"bot_patterns"`
}

// UpstreamConfig configures fetch-with-retry and the per-upstream breakers.
type UpstreamConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"      validate:"min=1,max=10"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	MaxJitter        time.Duration `yaml:"max_jitter"`
	AttemptTimeout   time.Duration `yaml:"attempt_timeout"`
	BreakerFailures  int           `yaml:"breaker_failures"  validate:"min=1"`
	BreakerSuccesses int           `yaml:"breaker_successes" validate:"min=1"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// FXConfig configures currency conversion.
type FXConfig struct {
	URL         string        `yaml:"url"          validate:"url"`
	APIKey      string        `env:"FX_API_KEY"    yaml:"api_key"`
	TTL         time.Duration `yaml:"ttl"`
	RedisPrefix string        `yaml:"redis_prefix"`
}

// RateLimitConfig holds the per-IP limits of the three endpoints.
type RateLimitConfig struct {
	Suggest WindowLimit `yaml:"suggest"`
	Track   WindowLimit `yaml:"track"`
	Search  TokenBucket `yaml:"search"`
}

// WindowLimit is a fixed-window limit: Max requests per Window.
type WindowLimit struct {
	Max    int           `yaml:"max"    validate:"min=1"`
	Window time.Duration `yaml:"window"`
}

// TokenBucket is a token-bucket limit.
type TokenBucket struct {
	RPS   float64 `yaml:"rps"   validate:"gt=0"`
	Burst int     `yaml:"burst" validate:"min=1"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	cfg.Logging.SetDefaults()
	setSearchDefaults(&cfg.Search)
	setSuggestDefaults(&cfg.Suggest)
	setTrackDefaults(&cfg.Track)
	setUpstreamDefaults(&cfg.Upstream)
	setFXDefaults(&cfg.FX)
	setRateLimitDefaults(&cfg.RateLimit)
	cfg.Database.SetDefaults()
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
}

func setSearchDefaults(s *SearchConfig) {
	if s.DefaultCurrency == "" {
		s.DefaultCurrency = defaultCurrency
	}
	if s.DefaultLimit == 0 {
		s.DefaultLimit = defaultResultLimit
	}
	if s.MaxLimit == 0 {
		s.MaxLimit = defaultMaxLimit
	}
	if s.CacheTTL == 0 {
		s.CacheTTL = defaultCacheTTL
	}
	if s.CacheSize == 0 {
		s.CacheSize = defaultCacheSize
	}
	if s.HotelsURL == "" {
		s.HotelsURL = defaultHotelsURL
	}
	if s.FlightsURL == "" {
		s.FlightsURL = defaultFlightsURL
	}
	setScoringDefaults(&s.Scoring)
}

// DefaultScoring returns the stock ranking constants.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		DefaultStyle:     "smart",
		DefaultRisk:      "medium",
		DefaultBudget:    150,
		StyleBonus:       0.25,
		RiskBonus:        0.25,
		BudgetRatioMin:   0.5,
		BudgetRatioMax:   1.5,
		DatesBoost:       1.05,
		RatingBase:       0.8,
		RatingWeight:     0.4,
		PopularityWeight: 0.15,
		PopularityBase:   0.925,
	}
}

// UnmarshalYAML starts from DefaultScoring, so keys missing from a scoring
// block keep their stock value and an explicit 0 stays 0.
func (sc *ScoringConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain ScoringConfig
	p := plain(DefaultScoring())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*sc = ScoringConfig(p)
	return nil
}

// setScoringDefaults only fills an absent scoring block.
func setScoringDefaults(sc *ScoringConfig) {
	if *sc == (ScoringConfig{}) {
		*sc = DefaultScoring()
	}
}

func setSuggestDefaults(s *SuggestConfig) {
	if s.URL == "" {
		s.URL = defaultSuggestURL
	}
	if s.DefaultLimit == 0 {
		s.DefaultLimit = defaultResultLimit
	}
	if s.MaxLimit == 0 {
		s.MaxLimit = defaultMaxLimit
	}
	if s.CacheTTL == 0 {
		s.CacheTTL = defaultSuggestTTL
	}
	if s.CacheSize == 0 {
		s.CacheSize = defaultCacheSize
	}
}

func setTrackDefaults(t *TrackConfig) {
	if t.BufferSize == 0 {
		t.BufferSize = defaultBufferSize
	}
	if t.FlushInterval == 0 {
		t.FlushInterval = defaultFlushInterval
	}
	if t.FlushThreshold == 0 {
		t.FlushThreshold = defaultFlushThreshold
	}
}

func setUpstreamDefaults(u *UpstreamConfig) {
	if u.MaxAttempts == 0 {
		u.MaxAttempts = defaultMaxAttempts
	}
	if u.InitialBackoff == 0 {
		u.InitialBackoff = defaultInitialBackoff
	}
	if u.MaxBackoff == 0 {
		u.MaxBackoff = defaultMaxBackoff
	}
	if u.MaxJitter == 0 {
		u.MaxJitter = defaultMaxJitter
	}
	if u.AttemptTimeout == 0 {
		u.AttemptTimeout = defaultAttemptTimeout
	}
	if u.BreakerFailures == 0 {
		u.BreakerFailures = defaultBreakerFailures
	}
	if u.BreakerSuccesses == 0 {
		u.BreakerSuccesses = defaultBreakerSuccesses
	}
	if u.BreakerCooldown == 0 {
		u.BreakerCooldown = defaultBreakerCooldown
	}
}

func setFXDefaults(f *FXConfig) {
	if f.URL == "" {
		f.URL = defaultFXURL
	}
	if f.TTL == 0 {
		f.TTL = defaultFXTTL
	}
	if f.RedisPrefix == "" {
		f.RedisPrefix = defaultFXRedisPrefix
	}
}

func setRateLimitDefaults(rl *RateLimitConfig) {
	if rl.Suggest.Max == 0 {
		rl.Suggest.Max = defaultSuggestMax
	}
	if rl.Suggest.Window == 0 {
		rl.Suggest.Window = defaultSuggestWindow
	}
	if rl.Track.Max == 0 {
		rl.Track.Max = defaultTrackMax
	}
	if rl.Track.Window == 0 {
		rl.Track.Window = defaultTrackWindow
	}
	if rl.Search.RPS == 0 {
		rl.Search.RPS = defaultSearchRPS
	}
	if rl.Search.Burst == 0 {
		rl.Search.Burst = defaultSearchBurst
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Track.RequireSignature && c.Track.HMACSecret == "" {
		return &infraconfig.ValidationError{
			Field:   "track.hmac_secret",
			Message: "is required when track.require_signature is set",
		}
	}
	if len(c.Search.DefaultCurrency) != 3 {
		return &infraconfig.ValidationError{
			Field:   "search.default_currency",
			Message: "must be a three-letter ISO 4217 code",
		}
	}
	return infraconfig.ValidateStruct(c)
}
