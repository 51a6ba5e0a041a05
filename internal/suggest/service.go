// Package suggest serves place autocomplete suggestions.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/cache"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// UpstreamName identifies the autocomplete API to the upstream client.
const UpstreamName = "autocomplete"

// Request defaults.
const (
	DefaultLang = "it"
	DefaultMode = "general"
)

var placeTypes = []string{"city", "airport", "region", "country", "station"}

// Fallback is served for empty queries and upstream failures.
var Fallback = []domain.Suggestion{
	{Name: "Roma", Code: "ROM", Type: "city", Country: "Italia"},
	{Name: "Milano", Code: "MIL", Type: "city", Country: "Italia"},
	{Name: "Parigi", Code: "PAR", Type: "city", Country: "Francia"},
	{Name: "Londra", Code: "LON", Type: "city", Country: "UK"},
	{Name: "New York", Code: "NYC", Type: "city", Country: "USA"},
	{Name: "Tokyo", Code: "TYO", Type: "city", Country: "Giappone"},
	{Name: "Dubai", Code: "DXB", Type: "city", Country: "UAE"},
	{Name: "Bangkok", Code: "BKK", Type: "city", Country: "Thailandia"},
}

// Outcomes reported to the Observer.
const (
	OutcomeEmpty    = "empty"
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeFallback = "fallback"
)

// JSONFetcher is satisfied by *upstream.Client.
type JSONFetcher interface {
	GetJSON(ctx context.Context, name, rawURL string, out any) error
}

// Observer receives one outcome per request.
type Observer interface {
	ObserveSuggest(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveSuggest(string) {}

// Config configures a Service.
type Config struct {
	URL          string
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
	CacheSize    int
}

// Query is a parsed autocomplete request.
type Query struct {
	Params
	Limit int
}

// Service answers autocomplete queries.
type Service struct {
	fetcher  JSONFetcher
	cache    *cache.Cache[[]domain.Suggestion]
	cfg      Config
	log      logger.Logger
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a Service with an LRU cache of ranked lists.
func NewService(fetcher JSONFetcher, cfg Config, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		cache:    cache.New[[]domain.Suggestion](cfg.CacheSize, cache.WithLRUTouch()),
		cfg:      cfg,
		log:      log,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseQuery reads q, lng, home, mode and limit from the URL query.
func (s *Service) ParseQuery(v url.Values) Query {
	lang := strings.ToLower(strings.TrimSpace(v.Get("lng")))
	if lang == "" {
		lang = DefaultLang
	}
	mode := strings.TrimSpace(v.Get("mode"))
	if mode == "" {
		mode = DefaultMode
	}
	return Query{
		Params: Params{
			Query: strings.TrimSpace(v.Get("q")),
			Lang:  lang,
			Home:  strings.TrimSpace(v.Get("home")),
			Mode:  mode,
		},
		Limit: ParseLimit(v.Get("limit"), s.cfg.DefaultLimit, s.cfg.MaxLimit),
	}
}

// ParseLimit parses raw and clamps it to [1, maxLimit]. Blank or
// unparsable input yields def.
func ParseLimit(raw string, def, maxLimit int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = def
	}
	return max(1, min(n, maxLimit))
}

// Run evicts expired ranked lists until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.cache.Run(ctx, s.cfg.CacheTTL)
}

// Suggest answers q. It never fails: upstream errors yield the fallback list.
func (s *Service) Suggest(ctx context.Context, q Query) domain.SuggestResponse {
	if q.Query == "" {
		s.observer.ObserveSuggest(OutcomeEmpty)
		return domain.SuggestResponse{Suggestions: head(Fallback, q.Limit)}
	}

	key := cacheKey(q)
	if ranked, ok := s.cache.Get(key); ok {
		s.observer.ObserveSuggest(OutcomeHit)
		return domain.SuggestResponse{Suggestions: head(ranked, q.Limit), Cached: boolPtr(true)}
	}

	places, err := s.fetch(ctx, q)
	if err != nil {
		s.log.Warn("Autocomplete failed, serving fallback",
			logger.String("query", q.Query),
			logger.Error(err),
		)
		s.observer.ObserveSuggest(OutcomeFallback)
		return domain.SuggestResponse{Suggestions: head(Fallback, q.Limit), Fallback: true}
	}

	ranked := Rank(Dedupe(places), q.Params)
	s.cache.Set(key, ranked, s.cfg.CacheTTL)
	s.observer.ObserveSuggest(OutcomeMiss)

	return domain.SuggestResponse{Suggestions: head(ranked, q.Limit), Cached: boolPtr(false)}
}

type place struct {
	Name        string  `json:"name"`
	CityName    string  `json:"city_name"`
	Code        string  `json:"code"`
	IATACode    string  `json:"iata_code"`
	Type        string  `json:"type"`
	Kind        string  `json:"kind"`
	CountryName string  `json:"country_name"`
	Country     string  `json:"country"`
	Weight      float64 `json:"weight"`
	Rate        float64 `json:"rate"`
	IsCity      bool    `json:"is_city"`
	Importance  float64 `json:"importance"`
}

func (p place) suggestion() domain.Suggestion {
	return domain.Suggestion{
		Name:      firstNonEmpty(p.Name, p.CityName),
		Code:      firstNonEmpty(p.Code, p.IATACode),
		Type:      firstNonEmpty(p.Type, p.Kind, "city"),
		Country:   firstNonEmpty(p.CountryName, p.Country),
		Weight:    firstNonZero(p.Weight, p.Rate),
		IsCapital: p.IsCity && p.Importance > 1000,
	}
}

func (s *Service) fetch(ctx context.Context, q Query) ([]domain.Suggestion, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse autocomplete url: %w", err)
	}
	params := u.Query()
	params.Set("term", q.Query)
	params.Set("locale", q.Lang)
	for _, t := range placeTypes {
		params.Add("types[]", t)
	}
	u.RawQuery = params.Encode()

	var records []json.RawMessage
	if err = s.fetcher.GetJSON(ctx, UpstreamName, u.String(), &records); err != nil {
		return nil, fmt.Errorf("fetch places: %w", err)
	}

	out := make([]domain.Suggestion, 0, len(records))
	for _, raw := range records {
		var p place
		if json.Unmarshal(raw, &p) != nil {
			continue
		}
		out = append(out, p.suggestion())
	}
	return out, nil
}

func cacheKey(q Query) string {
	return strings.Join([]string{q.Lang, q.Mode, strings.ToLower(q.Home), strings.ToLower(q.Query)}, "\x00")
}

// head copies at most n entries of list. The result is never nil so an empty
// list encodes as [].
func head(list []domain.Suggestion, n int) []domain.Suggestion {
	if n < len(list) {
		list = list[:n]
	}
	out := make([]domain.Suggestion, 0, len(list))
	return append(out, list...)
}

func boolPtr(b bool) *bool { return &b }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
