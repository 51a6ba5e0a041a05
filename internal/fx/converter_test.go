package fx_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/fx"
)

type stubFetcher struct {
	calls   atomic.Int32
	rates   map[string]float64
	err     error
	delay   time.Duration
	lastURL atomic.Value
}

func (s *stubFetcher) GetJSON(_ context.Context, _, rawURL string, out any) error {
	s.calls.Add(1)
	s.lastURL.Store(rawURL)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return s.err
	}
	return fillRates(out, s.rates)
}

func newConverter(f *stubFetcher, store fx.RateStore) *fx.Converter {
	return fx.NewConverter(f, store, fx.Config{BaseURL: "https://fx.example/latest", APIKey: "k", TTL: time.Hour}, logger.NewNop())
}

func TestConvert_UsesAndCachesRate(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{rates: map[string]float64{"USD": 1.1}}
	c := newConverter(f, fx.NewMemoryStore(10))

	assert.InDelta(t, 110.0, c.Convert(context.Background(), 100, "EUR", "USD"), 1e-9)
	assert.InDelta(t, 55.0, c.Convert(context.Background(), 50, "EUR", "usd"), 1e-9)
	assert.Equal(t, int32(1), f.calls.Load())

	u, err := url.Parse(f.lastURL.Load().(string))
	require.NoError(t, err)
	assert.Equal(t, "EUR", u.Query().Get("base"))
	assert.Equal(t, "USD", u.Query().Get("symbols"))
	assert.Equal(t, "k", u.Query().Get("access_key"))
}

func TestConvert_RoundsToTwoDecimals(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{rates: map[string]float64{"GBP": 0.85714}}
	c := newConverter(f, fx.NewMemoryStore(10))

	assert.InDelta(t, 85.71, c.Convert(context.Background(), 100, "EUR", "GBP"), 1e-9)
}

func TestConvert_SameCurrencyOrZeroSkipsLookup(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{rates: map[string]float64{"USD": 2}}
	c := newConverter(f, fx.NewMemoryStore(10))

	assert.InDelta(t, 42.0, c.Convert(context.Background(), 42, "EUR", "EUR"), 1e-9)
	assert.Zero(t, c.Convert(context.Background(), 0, "EUR", "USD"))
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestRate_FailureIsIdentityAndNotCached(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{err: errors.New("down")}
	c := newConverter(f, fx.NewMemoryStore(10))

	assert.InDelta(t, 1.0, c.Rate(context.Background(), "EUR", "USD"), 1e-9)
	assert.InDelta(t, 1.0, c.Rate(context.Background(), "EUR", "USD"), 1e-9)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestRate_MissingSymbolCachesIdentity(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{rates: map[string]float64{"JPY": 160}}
	c := newConverter(f, fx.NewMemoryStore(10))

	assert.InDelta(t, 1.0, c.Rate(context.Background(), "EUR", "USD"), 1e-9)
	assert.InDelta(t, 1.0, c.Rate(context.Background(), "EUR", "USD"), 1e-9)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRate_ConcurrentMissesCollapse(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{rates: map[string]float64{"CHF": 0.95}, delay: 50 * time.Millisecond}
	c := newConverter(f, fx.NewMemoryStore(10))

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			assert.InDelta(t, 0.95, c.Rate(context.Background(), "EUR", "CHF"), 1e-9)
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRedisStore_RoundTrip(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := fx.NewRedisStore(client, "vrabo:fx:")
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "EUR", "USD", 1.0875, time.Hour))
	rate, ok, err := store.Get(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1.0875, rate, 1e-9)
	assert.True(t, mr.Exists("vrabo:fx:EUR->USD"))

	mr.FastForward(2 * time.Hour)
	_, ok, err = store.Get(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConverter_WithRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &stubFetcher{rates: map[string]float64{"USD": 1.2}}
	c := newConverter(f, fx.NewRedisStore(client, "p:"))

	assert.InDelta(t, 12.0, c.Convert(context.Background(), 10, "EUR", "USD"), 1e-9)

	other := newConverter(&stubFetcher{err: errors.New("unused")}, fx.NewRedisStore(client, "p:"))
	assert.InDelta(t, 12.0, other.Convert(context.Background(), 10, "EUR", "USD"), 1e-9, "rate is shared through redis")
}
