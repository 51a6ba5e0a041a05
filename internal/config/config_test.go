package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/Kaglioster-hub/vrabo/infrastructure/config"
)

func defaultConfig() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func TestSetDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	assert.Equal(t, defaultServiceName, cfg.Service.Name)
	assert.Equal(t, defaultServicePort, cfg.Service.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "EUR", cfg.Search.DefaultCurrency)
	assert.Equal(t, 12, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, 60*time.Second, cfg.Search.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Suggest.CacheTTL)
	assert.Equal(t, time.Hour, cfg.FX.TTL)

	assert.Equal(t, 3, cfg.Upstream.MaxAttempts)
	assert.Equal(t, 400*time.Millisecond, cfg.Upstream.InitialBackoff)
	assert.Equal(t, 100*time.Millisecond, cfg.Upstream.MaxJitter)
	assert.Equal(t, 4*time.Second, cfg.Upstream.AttemptTimeout)

	assert.Equal(t, 30, cfg.RateLimit.Suggest.Max)
	assert.Equal(t, 5*time.Second, cfg.RateLimit.Suggest.Window)
	assert.Equal(t, 50, cfg.RateLimit.Track.Max)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Track.Window)
	assert.InDelta(t, 5.0, cfg.RateLimit.Search.RPS, 1e-9)
	assert.Equal(t, 20, cfg.RateLimit.Search.Burst)

	sc := cfg.Search.Scoring
	assert.Equal(t, "smart", sc.DefaultStyle)
	assert.Equal(t, "medium", sc.DefaultRisk)
	assert.InDelta(t, 150.0, sc.DefaultBudget, 1e-9)
	assert.InDelta(t, 0.925, sc.PopularityBase, 1e-9)

	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	require.NoError(t, defaultConfig().Validate())
}

func TestValidate_RequireSignatureWithoutSecret(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Track.RequireSignature = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, "track.hmac_secret: is required when track.require_signature is set", err.Error())

	cfg.Track.HMACSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_StructConstraints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"limit above cap", func(c *Config) { c.Search.DefaultLimit = 99 }, "search.defaultlimit"},
		{"bad suggest url", func(c *Config) { c.Suggest.URL = "not a url" }, "suggest.url"},
		{"inverted budget ratio", func(c *Config) { c.Search.Scoring.BudgetRatioMax = 0.1 }, "search.scoring.budgetratiomax"},
		{"zero attempts", func(c *Config) { c.Upstream.MaxAttempts = -1 }, "upstream.maxattempts"},
		{"bad trusted proxy", func(c *Config) {
			c.Service.TrustedProxies = []string{"10.0.0.0/8", "proxy.local"}
		}, "service.trustedproxies[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)

			var vErr *infraconfig.ValidationError
			require.True(t, errors.As(cfg.Validate(), &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestValidate_BadPortAndCurrency(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Service.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Search.DefaultCurrency = "EURO"
	assert.Error(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("VRABO_PORT", "8088")
	t.Setenv("TRACK_ALLOW_LIST", "booking.com, airbnb.com")
	t.Setenv("TRACK_REQUIRE_SIGNATURE", "1")
	t.Setenv("TRACK_HMAC_SECRET", "k")

	path := filepath.Join(t.TempDir(), "config.yml")
	body := "service:\n  port: 9000\nsearch:\n  default_currency: USD\naffiliates:\n  HOTEL: https://aff.example/hotel\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Service.Port)
	assert.Equal(t, "USD", cfg.Search.DefaultCurrency)
	assert.Equal(t, []string{"booking.com", "airbnb.com"}, cfg.Track.AllowList)
	assert.True(t, cfg.Track.RequireSignature)
	assert.Equal(t, "https://aff.example/hotel", cfg.Affiliates["HOTEL"])
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ScoringZeroIsKept(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "none.env"))

	tests := []struct {
		name string
		body string
		want func(*testing.T, ScoringConfig)
	}{
		{
			name: "absent block uses defaults",
			body: "search:\n  default_currency: EUR\n",
			want: func(t *testing.T, sc ScoringConfig) {
				assert.Equal(t, DefaultScoring(), sc)
			},
		},
		{
			name: "explicit zero bonus",
			body: "search:\n  scoring:\n    style_bonus: 0\n    dates_boost: 1.2\n",
			want: func(t *testing.T, sc ScoringConfig) {
				assert.Zero(t, sc.StyleBonus)
				assert.InDelta(t, 1.2, sc.DatesBoost, 1e-9)
				assert.InDelta(t, 0.25, sc.RiskBonus, 1e-9)
				assert.Equal(t, "smart", sc.DefaultStyle)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)
			tt.want(t, cfg.Search.Scoring)
		})
	}
}
