package provider

import (
	"context"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// catalogEntry is a static offer. Entries with queryLocation use the search query
// as location when it is not blank.
type catalogEntry struct {
	title         string
	price         string
	priceValue    float64
	location      string
	queryLocation bool
	popularity    float64
	tags          []string
	provider      string
	affiliateKey  string
}

var catalogs = map[domain.Category][]catalogEntry{
	domain.CategoryFinance: {
		{title: "N26 Standard", price: "0 €/mese", location: "Conto online", popularity: 0.85,
			tags: []string{"basic", "smart"}, provider: "N26", affiliateKey: "FINANCE"},
		{title: "Revolut Premium", price: "7,99 €/mese", priceValue: 7.99, location: "Globale", popularity: 0.9,
			tags: []string{"smart", "luxury"}, provider: "Revolut", affiliateKey: "FINANCE"},
	},
	domain.CategoryTrading: {
		{title: "eToro", price: "0% su azioni", location: "Multi-asset", popularity: 0.9,
			tags: []string{"low", "medium"}, provider: "eToro", affiliateKey: "TRADING"},
		{title: "Binance", price: "Fee crypto basse", priceValue: 0.1, location: "Exchange", popularity: 0.95,
			tags: []string{"medium", "high"}, provider: "Binance", affiliateKey: "TRADING"},
	},
	domain.CategoryTickets: {
		{title: "Eventi & Musei", price: "da 5€", priceValue: 5, location: "Roma", queryLocation: true,
			popularity: 0.8, tags: []string{"culture", "smart"}, provider: "Tiqets", affiliateKey: "TICKETS"},
		{title: "Concerti & Spettacoli", price: "da 20€", priceValue: 20, location: "Milano", queryLocation: true,
			popularity: 0.85, tags: []string{"music", "live"}, provider: "TicketNetwork", affiliateKey: "TICKETS2"},
	},
	domain.CategoryConnectivity: {
		{title: "Yesim eSIM", location: "Globale", popularity: 0.8,
			tags: []string{"mobile"}, provider: "Yesim", affiliateKey: "CONNECTIVITY1"},
		{title: "Airalo eSIM", location: "Globale", popularity: 0.85,
			tags: []string{"mobile"}, provider: "Airalo", affiliateKey: "CONNECTIVITY2"},
	},
	domain.CategoryInsurance: {
		{title: "EKTA Travel Insurance", price: "da 20€", priceValue: 20, location: "Globale", popularity: 0.8,
			tags: []string{"safety"}, provider: "EKTA", affiliateKey: "INSURANCE"},
	},
	domain.CategorySoftware: {
		{title: "NordVPN", price: "da 3€/mese", priceValue: 3, location: "Globale", popularity: 0.9,
			tags: []string{"security"}, provider: "NordVPN", affiliateKey: "SOFTWARE"},
	},
	domain.CategoryEnergy: {
		{title: "Offerta Energia Verde", price: "da 30€/mese", priceValue: 30, location: "Italia", popularity: 0.7,
			tags: []string{"green"}, provider: "EnergyCo", affiliateKey: "ENERGY"},
	},
}

// Catalog serves a fixed list of offers.
type Catalog struct {
	entries []catalogEntry
	links   Links
}

// newCatalog creates a catalog provider.
func newCatalog(entries []catalogEntry, links Links) *Catalog {
	return &Catalog{entries: entries, links: links}
}

// Offers implements Provider.
func (c *Catalog) Offers(_ context.Context, req Request) ([]domain.RawOffer, error) {
	offers := make([]domain.RawOffer, 0, len(c.entries))
	for _, e := range c.entries {
		location := e.location
		if e.queryLocation {
			location = orDefault(req.Query, e.location)
		}
		offer := domain.RawOffer{
			Title:      e.title,
			Price:      e.price,
			Location:   location,
			URL:        c.links.URL(e.affiliateKey),
			Provider:   e.provider,
			Tags:       append([]string(nil), e.tags...),
			Popularity: domain.Float(e.popularity),
			Source:     domain.SourceCatalog,
		}
		if e.priceValue > 0 {
			offer.PriceValue = domain.Float(e.priceValue)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}
