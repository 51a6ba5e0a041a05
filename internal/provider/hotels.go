package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

const (
	hotelsLimit       = "30"
	hotelsDefaultCity = "Rome"
	hotelAffiliateKey = "HOTEL"
	hotelProviderName = "Hotellook"
	// maxConcurrentFX bounds the per-hotel conversions in flight.
	maxConcurrentFX = 8
)

// Hotels queries the Hotellook cache API.
type Hotels struct {
	fetcher JSONFetcher
	fx      Converter
	links   Links
	baseURL string
	token   string
	log     logger.Logger
}

// NewHotels creates the bnb provider.
func NewHotels(d Deps) *Hotels {
	return &Hotels{
		fetcher: d.Fetcher,
		fx:      d.FX,
		links:   d.Links,
		baseURL: d.HotelsURL,
		token:   d.Token,
		log:     d.Logger,
	}
}

// FallbackSize implements Live.
func (h *Hotels) FallbackSize() int { return HotelFallbackSize }

type hotelRecord struct {
	Name      string          `json:"name"`
	HotelName string          `json:"hotelName"`
	PriceFrom looseNumber     `json:"priceFrom"`
	Price     looseNumber     `json:"price"`
	Location  json.RawMessage `json:"location"`
	Photo     string          `json:"photo"`
	Stars     looseNumber     `json:"stars"`
	Address   string          `json:"address"`
}

func (r *hotelRecord) locationName() string {
	if len(r.Location) == 0 {
		return ""
	}
	var obj struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(r.Location, &obj) == nil {
		return obj.Name
	}
	var s string
	if json.Unmarshal(r.Location, &s) == nil {
		return s
	}
	return ""
}

func (r *hotelRecord) priceValue() float64 {
	if r.PriceFrom != 0 {
		return float64(r.PriceFrom)
	}
	return float64(r.Price)
}

// Offers implements Provider. Records that fail to decode are skipped.
func (h *Hotels) Offers(ctx context.Context, req Request) ([]domain.RawOffer, error) {
	endpoint, err := h.buildURL(req)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err = h.fetcher.GetJSON(ctx, UpstreamHotellook, endpoint, &records); err != nil {
		return nil, fmt.Errorf("fetch hotels: %w", err)
	}

	hotels := make([]hotelRecord, 0, len(records))
	for i, raw := range records {
		var rec hotelRecord
		if decodeErr := json.Unmarshal(raw, &rec); decodeErr != nil {
			h.log.Debug("Skipping malformed hotel record",
				logger.Int("index", i),
				logger.Error(decodeErr),
			)
			continue
		}
		hotels = append(hotels, rec)
	}
	if len(hotels) == 0 {
		return nil, ErrNoResults
	}

	prices := h.convertAll(ctx, hotels, req.Currency)
	link := h.links.URL(hotelAffiliateKey)

	offers := make([]domain.RawOffer, 0, len(hotels))
	for i, rec := range hotels {
		offer := domain.RawOffer{
			Title:       orDefault(orDefault(rec.Name, rec.HotelName), "Alloggio a "+req.Query),
			Description: rec.Address,
			Location:    orDefault(rec.locationName(), req.Query),
			Image:       orDefault(rec.Photo, picsum("hotel"+strconv.Itoa(i))),
			URL:         link,
			Provider:    hotelProviderName,
			Tags:        []string{"smart"},
			Popularity:  domain.Float(between(0.65, 1)),
			Source:      domain.SourceLive,
		}
		if rec.Stars > 0 {
			offer.Rating = domain.Float(float64(rec.Stars))
		}
		if p := prices[i]; p > 0 {
			offer.PriceValue = domain.Float(p)
			offer.Price = priceLabel(p, req.Currency)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// convertAll converts every known hotel price concurrently.
func (h *Hotels) convertAll(ctx context.Context, hotels []hotelRecord, currency string) []float64 {
	prices := make([]float64, len(hotels))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFX)
	for i := range hotels {
		p := hotels[i].priceValue()
		if p <= 0 {
			continue
		}
		g.Go(func() error {
			prices[i] = h.fx.Convert(ctx, p, BaseCurrency, currency)
			return nil
		})
	}
	_ = g.Wait()

	return prices
}

func (h *Hotels) buildURL(req Request) (string, error) {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse hotels url: %w", err)
	}

	q := u.Query()
	q.Set("location", orDefault(req.Query, hotelsDefaultCity))
	q.Set("currency", BaseCurrency)
	q.Set("limit", hotelsLimit)
	if d, ok := isoDate(req.StartDate); ok {
		q.Set("checkIn", d)
	}
	if d, ok := isoDate(req.EndDate); ok {
		q.Set("checkOut", d)
	}
	if h.token != "" {
		q.Set("token", h.token)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func priceLabel(v float64, currency string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + currency
}
