package provider

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

const (
	defaultCarBase = 25
	minCarPrice    = 12
)

var carPickups = []string{"Aeroporto", "Centro città", "Stazione"}

// Cars prices three pickup points from the profile budget.
type Cars struct {
	links Links
}

// NewCars creates the car provider.
func NewCars(links Links) *Cars {
	return &Cars{links: links}
}

// CarPrice is the daily price at pickup index i for a budget base.
func CarPrice(base float64, i int) float64 {
	return math.Max(minCarPrice, math.Round(base*(0.85+float64(i)*0.22)))
}

// Offers implements Provider.
func (c *Cars) Offers(_ context.Context, req Request) ([]domain.RawOffer, error) {
	base := req.Budget
	if base <= 0 {
		base = defaultCarBase
	}
	link := c.links.URL(domain.CategoryCar.AffiliateKey())

	offers := make([]domain.RawOffer, 0, len(carPickups))
	for i, place := range carPickups {
		p := CarPrice(base, i)
		offers = append(offers, domain.RawOffer{
			Title:      "Auto a " + place,
			Price:      fmt.Sprintf("%s %s/giorno", strconv.FormatFloat(p, 'f', -1, 64), req.Currency),
			PriceValue: domain.Float(p),
			Location:   place,
			Image:      picsum("car" + strconv.Itoa(i)),
			URL:        link,
			Provider:   "RentalCars",
			Tags:       []string{"basic", "smart"},
			Popularity: domain.Float(between(0.6, 1)),
			Source:     domain.SourceCatalog,
		})
	}
	return offers, nil
}

// Transfers returns one airport transfer located at the query.
type Transfers struct {
	links Links
}

// NewTransfers creates the transfer provider.
func NewTransfers(links Links) *Transfers {
	return &Transfers{links: links}
}

// Offers implements Provider.
func (t *Transfers) Offers(_ context.Context, req Request) ([]domain.RawOffer, error) {
	return []domain.RawOffer{{
		Title:      "Transfer Aeroporto",
		Price:      "da 15€",
		PriceValue: domain.Float(15),
		Location:   orDefault(req.Query, "Aeroporto"),
		URL:        t.links.URL(domain.CategoryTransfer.AffiliateKey()),
		Provider:   "Transfers",
		Tags:       []string{"basic", "smart"},
		Popularity: domain.Float(0.7),
		Source:     domain.SourceCatalog,
	}}, nil
}
