// Package search aggregates provider offers into a ranked result list.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/cache"
	"github.com/Kaglioster-hub/vrabo/internal/config"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
	"github.com/Kaglioster-hub/vrabo/internal/provider"
	"github.com/Kaglioster-hub/vrabo/internal/upstream"
)

// ErrProviderPanic wraps a panic recovered from a provider.
var ErrProviderPanic = errors.New("provider panicked")

// Fallback reasons reported to the Observer.
const (
	ReasonPanic   = "panic"
	ReasonEmpty   = "empty"
	ReasonError   = "error"
	ReasonUnknown = "unknown_category"
)

// Observer receives aggregator events. *metrics.Metrics implements it.
type Observer interface {
	ObserveFallback(category, reason string)
	ObserveSearchCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveFallback(string, string) {}
func (nopObserver) ObserveSearchCache(bool)        {}

// Config configures the aggregator.
type Config struct {
	DefaultCurrency string
	DefaultLimit    int
	MaxLimit        int
	CacheTTL        time.Duration
	CacheSize       int
	Scoring         config.ScoringConfig
}

// Service dispatches a search to its category provider, then dedupes,
// scores, sorts and truncates the offers.
type Service struct {
	registry  *provider.Registry
	synthetic *provider.Synthetic
	cache     *cache.Cache[[]domain.RawOffer]
	cfg       Config
	log       logger.Logger
	observer  Observer
}

// Option configures a Service.
type Option func(*Service)

// WithObserver reports fallbacks and cache lookups to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a Service.
func NewService(
	registry *provider.Registry,
	synthetic *provider.Synthetic,
	cfg Config,
	log logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		registry:  registry,
		synthetic: synthetic,
		cache:     cache.New[[]domain.RawOffer](cfg.CacheSize),
		cfg:       cfg,
		log:       log,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run evicts expired live results until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.cache.Run(ctx, s.cfg.CacheTTL)
}

// Search runs req and returns at most the clamped limit of offers. It does
// not fail: provider errors and panics degrade to synthetic offers.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) []domain.Offer {
	req = s.withDefaults(req)

	preq := provider.Request{
		Category:  req.Type,
		Query:     strings.TrimSpace(req.Query),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Budget:    req.Profile.BudgetValue(),
		Currency:  req.Currency,
	}

	raw := s.collect(ctx, preq)

	offers := make([]domain.Offer, 0, len(raw))
	for _, r := range raw {
		offers = append(offers, domain.Normalize(r, req.Type))
	}
	offers = Dedupe(offers)

	hasDates := req.HasDates()
	for i := range offers {
		offers[i].Score = Score(offers[i], req.Type, req.Profile, hasDates, s.cfg.Scoring)
	}
	slices.SortStableFunc(offers, func(a, b domain.Offer) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if limit := *req.Limit; len(offers) > limit {
		offers = offers[:limit]
	}
	return offers
}

func (s *Service) withDefaults(req domain.SearchRequest) domain.SearchRequest {
	req.Type = domain.Category(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if req.Type == "" {
		req.Type = domain.CategoryBnB
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = s.cfg.DefaultCurrency
	}
	limit := ClampLimit(req.LimitOr(s.cfg.DefaultLimit), s.cfg.MaxLimit)
	req.Limit = &limit
	return req
}

// ClampLimit clamps limit to [1, maxLimit].
func ClampLimit(limit, maxLimit int) int {
	return max(1, min(limit, maxLimit))
}

// collect returns the raw offers for req, from the cache when possible.
func (s *Service) collect(ctx context.Context, req provider.Request) []domain.RawOffer {
	p, ok := s.registry.Lookup(req.Category)
	if !ok {
		s.observer.ObserveFallback(string(req.Category), ReasonUnknown)
		return s.synthetic.Generate(req.Category, req.Query, provider.UnknownCategorySize)
	}

	live, isLive := p.(provider.Live)
	if !isLive {
		offers, err := s.call(ctx, p, req)
		if err != nil {
			s.degraded(req, err)
			return s.synthetic.Generate(req.Category, req.Query, provider.UnknownCategorySize)
		}
		return offers
	}

	key := cacheKey(req)
	if cached, hit := s.cache.Get(key); hit {
		s.observer.ObserveSearchCache(true)
		return cached
	}
	s.observer.ObserveSearchCache(false)

	offers, err := s.call(ctx, live, req)
	if err == nil && len(offers) == 0 {
		err = provider.ErrNoResults
	}
	if err != nil {
		s.degraded(req, err)
		return s.synthetic.Generate(req.Category, req.Query, live.FallbackSize())
	}

	s.cache.Set(key, offers, s.cfg.CacheTTL)
	return offers
}

func (s *Service) call(ctx context.Context, p provider.Provider, req provider.Request) (offers []domain.RawOffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProviderPanic, r)
		}
	}()
	return p.Offers(ctx, req)
}

func (s *Service) degraded(req provider.Request, err error) {
	reason := fallbackReason(err)
	fields := []logger.Field{
		logger.String("category", string(req.Category)),
		logger.String("reason", reason),
		logger.Error(err),
	}

	var uErr *upstream.Error
	if errors.As(err, &uErr) {
		fields = append(fields,
			logger.String("upstream", uErr.Upstream),
			logger.String("kind", string(uErr.Kind)),
		)
	}

	if reason == ReasonPanic {
		s.log.Error("Provider panicked, serving synthetic offers", fields...)
	} else {
		s.log.Warn("Provider failed, serving synthetic offers", fields...)
	}
	s.observer.ObserveFallback(string(req.Category), reason)
}

func fallbackReason(err error) string {
	var uErr *upstream.Error
	switch {
	case errors.Is(err, ErrProviderPanic):
		return ReasonPanic
	case errors.Is(err, provider.ErrNoResults):
		return ReasonEmpty
	case errors.As(err, &uErr):
		return string(uErr.Kind)
	default:
		return ReasonError
	}
}

func cacheKey(req provider.Request) string {
	return strings.Join([]string{
		string(req.Category),
		strings.ToLower(req.Query),
		req.StartDate,
		req.EndDate,
		req.Currency,
	}, "|")
}
