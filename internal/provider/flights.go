package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

const (
	flightAffiliateKey = "FLIGHT"
	kiwiAffiliateKey   = "FLIGHT2"
	flightProviderName = "Travelpayouts"
	originLength       = 3
)

// ErrNoOrigin is returned when the query yields no origin code.
var ErrNoOrigin = errors.New("provider: no flight origin")

// Flights queries the Travelpayouts cheap-prices API.
type Flights struct {
	fetcher JSONFetcher
	fx      Converter
	links   Links
	baseURL string
	token   string
}

// NewFlights creates the flight provider.
func NewFlights(d Deps) *Flights {
	return &Flights{
		fetcher: d.Fetcher,
		fx:      d.FX,
		links:   d.Links,
		baseURL: d.FlightsURL,
		token:   d.Token,
	}
}

// FallbackSize implements Live.
func (f *Flights) FallbackSize() int { return FlightFallbackSize }

type fare struct {
	Price       looseNumber `json:"price"`
	Airline     string      `json:"airline"`
	DepartureAt string      `json:"departure_at"`
	ReturnAt    string      `json:"return_at"`
}

type cheapResponse struct {
	Success bool                       `json:"success"`
	Data    map[string]map[string]fare `json:"data"`
}

// Origin derives the IATA origin from the first three letters of query.
func Origin(query string) string {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > originLength {
		query = string([]rune(query)[:originLength])
	}
	return strings.ToUpper(query)
}

// Offers implements Provider. One offer per destination and fare class,
// destinations in sorted order, followed by a static Kiwi offer.
func (f *Flights) Offers(ctx context.Context, req Request) ([]domain.RawOffer, error) {
	origin := Origin(req.Query)
	if origin == "" {
		return nil, ErrNoOrigin
	}

	endpoint, err := f.buildURL(origin)
	if err != nil {
		return nil, err
	}

	var resp cheapResponse
	if err = f.fetcher.GetJSON(ctx, UpstreamTravelpayouts, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch flights: %w", err)
	}

	link := f.links.URL(flightAffiliateKey)
	var offers []domain.RawOffer

	for _, dest := range slices.Sorted(maps.Keys(resp.Data)) {
		fares := resp.Data[dest]
		for _, class := range slices.Sorted(maps.Keys(fares)) {
			fr := fares[class]
			route := origin + " → " + dest
			offer := domain.RawOffer{
				Title:       fmt.Sprintf("%s (%s)", route, class),
				Description: fr.describe(),
				Location:    route,
				Image:       picsum("flight" + dest),
				URL:         link,
				Provider:    flightProviderName,
				Tags:        []string{"smart"},
				Popularity:  domain.Float(between(0.7, 1)),
				Source:      domain.SourceLive,
			}
			if p := float64(fr.Price); p > 0 {
				converted := f.fx.Convert(ctx, p, BaseCurrency, req.Currency)
				offer.PriceValue = domain.Float(converted)
				offer.Price = priceLabel(converted, req.Currency)
			}
			offers = append(offers, offer)
		}
	}

	offers = append(offers, domain.RawOffer{
		Title:      origin + " → ANY (via Kiwi)",
		Location:   req.Query,
		Image:      picsum("kiwi"),
		URL:        f.links.URL(kiwiAffiliateKey),
		Provider:   "Kiwi",
		Popularity: domain.Float(0.7),
		Source:     domain.SourceCatalog,
	})
	return offers, nil
}

func (fr fare) describe() string {
	var parts []string
	if fr.Airline != "" {
		parts = append(parts, fr.Airline)
	}
	if d, ok := isoDate(fr.DepartureAt); ok {
		parts = append(parts, "andata "+d)
	}
	if d, ok := isoDate(fr.ReturnAt); ok {
		parts = append(parts, "ritorno "+d)
	}
	return strings.Join(parts, " · ")
}

func (f *Flights) buildURL(origin string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse flights url: %w", err)
	}

	q := u.Query()
	q.Set("origin", origin)
	q.Set("token", f.token)
	q.Set("currency", BaseCurrency)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
