package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Profile carries the user preferences used by the scoring heuristic.
type Profile struct {
	Budget *Budget `json:"budget,omitempty"`
	Style  string  `json:"style,omitempty"`
	Risk   string  `json:"risk,omitempty"`
}

// Budget accepts a JSON number or a numeric string. Anything else decodes
// to an unset budget rather than failing the request.
type Budget float64

func (b *Budget) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = Budget(n)
		return nil
	}

	// booleans, objects and arrays leave the budget unset
	var s string
	if json.Unmarshal(data, &s) != nil {
		return nil
	}
	if v, ok := ParseLooseNumber(s); ok {
		*b = Budget(v)
	}
	return nil
}

// BudgetValue returns the budget or 0 when unset.
func (p *Profile) BudgetValue() float64 {
	if p == nil || p.Budget == nil {
		return 0
	}
	return float64(*p.Budget)
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Type      Category `json:"type"`
	Query     string   `json:"query"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
	Currency  string   `json:"currency,omitempty"`
}

// HasDates reports whether both stay dates were supplied.
func (r *SearchRequest) HasDates() bool {
	return strings.TrimSpace(r.StartDate) != "" && strings.TrimSpace(r.EndDate) != ""
}

// LimitOr returns the requested limit, or def when none was supplied.
func (r *SearchRequest) LimitOr(def int) int {
	if r.Limit == nil {
		return def
	}
	return *r.Limit
}

// SearchResponse is the 200 body of POST /api/search.
type SearchResponse struct {
	Results []Offer `json:"results"`
}

// ParseLooseNumber extracts a number from free text such as "89,90 €" or
// "EUR 120". Characters other than digits, '.', ',' and '-' are dropped and the
// first ',' becomes a decimal point. Zero and unparsable input report false.
func ParseLooseNumber(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Replace(b.String(), ",", ".", 1)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}
