package domain

import (
	"math"
	"strings"
)

// Offer display defaults.
const (
	FallbackImage      = "https://picsum.photos/seed/vrabo/600/360"
	DefaultTitle       = "Offerta"
	DefaultPriceLabel  = "—"
	DefaultLocation    = "—"
	DefaultPopularity  = 0.6
	UnresolvedURL      = "#"
	DefaultProviderTag = "generic"
)

// Source tells the client how an offer was produced.
type Source string

const (
	// SourceLive offers were parsed from an upstream API response.
	SourceLive Source = "live"
	// SourceCatalog offers are static or templated entries.
	SourceCatalog Source = "catalog"
	// SourceSynthetic offers were generated because an upstream failed.
	SourceSynthetic Source = "synthetic"
)

// Offer is a normalized affiliate offer.
type Offer struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Rating             *float64 `json:"rating"`
	Price              string   `json:"price"`
	PriceValue         *float64 `json:"priceValue"`
	Location           string   `json:"location"`
	Image              string   `json:"image"`
	URL                string   `json:"url"`
	Provider           string   `json:"provider"`
	Tags               []string `json:"tags"`
	Popularity         float64  `json:"popularity"`
	CommissionEstimate *float64 `json:"commissionEstimate"`
	Score              float64  `json:"score"`
	Source             Source   `json:"source"`
}

// RawOffer is what a provider produces before normalization. Nil pointers
// and blank strings mean "unknown".
type RawOffer struct {
	Title       string
	Description string
	Rating      *float64
	Price       string
	PriceValue  *float64
	Location    string
	Image       string
	URL         string
	Provider    string
	Tags        []string
	Popularity  *float64
	Source      Source
}

// Normalize applies display defaults so title, price and image are never
// empty, rejects non-http(s) image and link URLs and computes the
// commission estimate for category.
func Normalize(raw RawOffer, category Category) Offer {
	o := Offer{
		Title:       orDefault(raw.Title, DefaultTitle),
		Description: strings.TrimSpace(raw.Description),
		Price:       orDefault(raw.Price, DefaultPriceLabel),
		Location:    orDefault(raw.Location, DefaultLocation),
		Image:       orDefault(raw.Image, FallbackImage),
		URL:         orDefault(raw.URL, UnresolvedURL),
		Provider:    orDefault(raw.Provider, DefaultProviderTag),
		Tags:        raw.Tags,
		Popularity:  DefaultPopularity,
		Source:      raw.Source,
	}

	if !IsHTTPURL(o.Image) {
		o.Image = FallbackImage
	}
	if o.URL != UnresolvedURL && !IsHTTPURL(o.URL) {
		o.URL = UnresolvedURL
	}
	if o.Tags == nil {
		o.Tags = []string{}
	}
	if raw.Popularity != nil {
		o.Popularity = *raw.Popularity
	}
	if o.Source == "" {
		o.Source = SourceCatalog
	}
	if raw.Rating != nil && !math.IsNaN(*raw.Rating) {
		o.Rating = Float(*raw.Rating)
	}
	if raw.PriceValue != nil && *raw.PriceValue != 0 && !math.IsNaN(*raw.PriceValue) {
		o.PriceValue = Float(*raw.PriceValue)
		o.CommissionEstimate = Float(*raw.PriceValue * category.CommissionRate())
	}

	return o
}

// IsHTTPURL reports whether s starts with http:// or https://, ignoring case.
func IsHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
