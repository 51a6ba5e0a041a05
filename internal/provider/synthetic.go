package provider

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// Synthetic fallback sizes.
const (
	HotelFallbackSize   = 8
	FlightFallbackSize  = 6
	UnknownCategorySize = 8
	syntheticProvider   = "MockVRABO"
	syntheticQuery      = "Roma"
)

// Synthetic generates plausible placeholder offers when a live provider
// fails or the category is unknown.
type Synthetic struct {
	links Links
}

// NewSynthetic creates a Synthetic generator.
func NewSynthetic(links Links) *Synthetic {
	return &Synthetic{links: links}
}

// Generate returns n offers for category. Prices are in EUR.
func (s *Synthetic) Generate(category domain.Category, query string, n int) []domain.RawOffer {
	query = orDefault(query, syntheticQuery)
	link := s.links.URL(category.AffiliateKey())

	offers := make([]domain.RawOffer, 0, n)
	for i := range n {
		p := float64(40 + rand.N(201))
		offers = append(offers, domain.RawOffer{
			Title:      fmt.Sprintf("%s speciale %s #%d", strings.ToUpper(string(category)), query, i+1),
			Price:      priceLabel(p, BaseCurrency),
			PriceValue: domain.Float(p),
			Location:   query,
			Image:      picsum(string(category) + strconv.Itoa(i)),
			URL:        link,
			Provider:   syntheticProvider,
			Tags:       []string{"smart"},
			Popularity: domain.Float(between(0.5, 1)),
			Source:     domain.SourceSynthetic,
		})
	}
	return offers
}

func picsum(seed string) string {
	return "https://picsum.photos/seed/" + url.PathEscape(seed) + "/600/360"
}
