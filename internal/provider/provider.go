// Package provider produces raw offers for each search category.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// Upstream names, used for breakers, logs and metrics.
const (
	UpstreamHotellook     = "hotellook"
	UpstreamTravelpayouts = "travelpayouts"
)

// BaseCurrency is the currency the travel price APIs are queried in.
const BaseCurrency = "EUR"

// ErrNoResults is returned by a live provider whose upstream answered with
// nothing usable.
var ErrNoResults = errors.New("provider: no results")

// Request carries the search parameters a provider may use.
type Request struct {
	Category  domain.Category
	Query     string
	StartDate string
	EndDate   string
	// Budget is the profile budget, 0 when unset.
	Budget   float64
	Currency string
}

// Provider produces offers for one category.
type Provider interface {
	Offers(ctx context.Context, req Request) ([]domain.RawOffer, error)
}

// Live providers call an upstream API. On failure the aggregator replaces
// their output with FallbackSize synthetic offers.
type Live interface {
	Provider
	FallbackSize() int
}

// JSONFetcher is satisfied by *upstream.Client.
type JSONFetcher interface {
	GetJSON(ctx context.Context, name, rawURL string, out any) error
}

// Converter is satisfied by *fx.Converter.
type Converter interface {
	Convert(ctx context.Context, value float64, from, to string) float64
}

// Links is satisfied by *affiliate.Resolver.
type Links interface {
	URL(key string) string
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, req Request) ([]domain.RawOffer, error)

func (f ProviderFunc) Offers(ctx context.Context, req Request) ([]domain.RawOffer, error) {
	return f(ctx, req)
}

// Deps are the shared collaborators of the built-in providers.
type Deps struct {
	Fetcher    JSONFetcher
	FX         Converter
	Links      Links
	Logger     logger.Logger
	HotelsURL  string
	FlightsURL string
	Token      string
}

// Registry maps categories to providers.
type Registry struct {
	providers map[domain.Category]Provider
}

// NewRegistry registers a provider for every known category.
func NewRegistry(d Deps) *Registry {
	r := &Registry{providers: make(map[domain.Category]Provider)}

	r.Register(domain.CategoryBnB, NewHotels(d))
	r.Register(domain.CategoryFlight, NewFlights(d))
	r.Register(domain.CategoryCar, NewCars(d.Links))
	r.Register(domain.CategoryTransfer, NewTransfers(d.Links))
	for category, entries := range catalogs {
		r.Register(category, newCatalog(entries, d.Links))
	}
	return r
}

// Register sets the provider for category, replacing any previous one.
func (r *Registry) Register(category domain.Category, p Provider) {
	r.providers[category] = p
}

// Lookup returns the provider for category.
func (r *Registry) Lookup(category domain.Category) (Provider, bool) {
	p, ok := r.providers[category]
	return p, ok
}

// between returns a random value in [lo, hi).
func between(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// isoDate reduces a date or timestamp to YYYY-MM-DD.
func isoDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

// looseNumber decodes a JSON number or a numeric string. Other values decode
// to zero.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = looseNumber(f)
		return nil
	}
	var s string
	if json.Unmarshal(data, &s) != nil {
		return nil
	}
	if v, ok := domain.ParseLooseNumber(s); ok {
		*n = looseNumber(v)
	}
	return nil
}
