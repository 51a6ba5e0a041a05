// Package fx converts prices between currencies using cached exchange rates.
package fx

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
)

// UpstreamName identifies the rates API to the upstream client.
const UpstreamName = "fx"

// JSONFetcher is satisfied by *upstream.Client.
type JSONFetcher interface {
	GetJSON(ctx context.Context, name, rawURL string, out any) error
}

// Converter looks up rates through a RateStore, falling back to the rates
// API on a miss. Conversion never fails: an unavailable rate is treated as 1.
type Converter struct {
	fetcher JSONFetcher
	store   RateStore
	baseURL string
	apiKey  string
	ttl     time.Duration
	log     logger.Logger
	group   singleflight.Group
}

// Config configures a Converter.
type Config struct {
	BaseURL string
	APIKey  string
	TTL     time.Duration
}

// NewConverter creates a Converter.
func NewConverter(fetcher JSONFetcher, store RateStore, cfg Config, log logger.Logger) *Converter {
	return &Converter{
		fetcher: fetcher,
		store:   store,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		ttl:     cfg.TTL,
		log:     log,
	}
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the from→to exchange rate. Concurrent misses for the same
// pair share one upstream call. A failed lookup returns 1 and is not cached;
// a response without the target currency caches 1.
func (c *Converter) Rate(ctx context.Context, from, to string) float64 {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1
	}

	if rate, ok, err := c.store.Get(ctx, from, to); err != nil {
		c.log.Warn("FX store read failed", logger.String("pair", pairKey(from, to)), logger.Error(err))
	} else if ok {
		return rate
	}

	v, _, _ := c.group.Do(pairKey(from, to), func() (any, error) {
		// a concurrent flight may have filled the store meanwhile
		if rate, ok, err := c.store.Get(ctx, from, to); err == nil && ok {
			return rate, nil
		}
		return c.fetch(ctx, from, to), nil
	})
	return v.(float64)
}

func (c *Converter) fetch(ctx context.Context, from, to string) float64 {
	q := url.Values{}
	q.Set("base", from)
	q.Set("symbols", to)
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}

	var resp ratesResponse
	if err := c.fetcher.GetJSON(ctx, UpstreamName, c.baseURL+"?"+q.Encode(), &resp); err != nil {
		c.log.Warn("FX lookup failed, using identity rate",
			logger.String("pair", pairKey(from, to)),
			logger.Error(err),
		)
		return 1
	}

	rate, ok := resp.Rates[to]
	if !ok || rate <= 0 || math.IsNaN(rate) {
		rate = 1
	}
	if err := c.store.Set(ctx, from, to, rate, c.ttl); err != nil {
		c.log.Warn("FX store write failed", logger.String("pair", pairKey(from, to)), logger.Error(err))
	}
	return rate
}

// Convert returns value expressed in to, rounded to two decimals. A zero
// value or identical currencies skip the lookup.
func (c *Converter) Convert(ctx context.Context, value float64, from, to string) float64 {
	if value == 0 || strings.EqualFold(from, to) {
		return value
	}
	return Round2(value * c.Rate(ctx, from, to))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
