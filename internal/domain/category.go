// Package domain holds the types shared by the search, suggest and track
// endpoints.
package domain

import "strings"

// Category identifies an offer vertical, the "type" of a search request.
type Category string

const (
	CategoryBnB          Category = "bnb"
	CategoryFlight       Category = "flight"
	CategoryCar          Category = "car"
	CategoryTransfer     Category = "transfer"
	CategoryFinance      Category = "finance"
	CategoryTrading      Category = "trading"
	CategoryTickets      Category = "tickets"
	CategoryConnectivity Category = "connectivity"
	CategoryInsurance    Category = "insurance"
	CategorySoftware     Category = "software"
	CategoryEnergy       Category = "energy"
)

// DefaultCommissionRate applies to categories missing from the table.
const DefaultCommissionRate = 0.05

var commissionRates = map[Category]float64{
	CategoryBnB:          0.07,
	CategoryFlight:       0.09,
	CategoryCar:          0.07,
	CategoryTransfer:     0.08,
	CategoryFinance:      0.40,
	CategoryTrading:      0.30,
	CategoryTickets:      0.15,
	CategoryConnectivity: 0.20,
	CategoryInsurance:    0.25,
	CategorySoftware:     0.35,
	CategoryEnergy:       0.20,
}

// Categories lists the known categories in display order.
func Categories() []Category {
	return []Category{
		CategoryBnB, CategoryFlight, CategoryCar, CategoryTransfer,
		CategoryFinance, CategoryTrading, CategoryTickets, CategoryConnectivity,
		CategoryInsurance, CategorySoftware, CategoryEnergy,
	}
}

// CommissionRate returns the affiliate commission rate for c.
func (c Category) CommissionRate() float64 {
	if rate, ok := commissionRates[c]; ok {
		return rate
	}
	return DefaultCommissionRate
}

// Known reports whether c has an entry in the commission table.
func (c Category) Known() bool {
	_, ok := commissionRates[c]
	return ok
}

// AffiliateKey is the upper-case key used to look up c's affiliate URL.
func (c Category) AffiliateKey() string {
	return strings.ToUpper(string(c))
}

func (c Category) String() string {
	return string(c)
}
