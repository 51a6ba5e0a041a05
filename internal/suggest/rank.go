package suggest

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// Ranking weights.
const (
	namePrefixBonus    = 120
	nameContainsBonus  = 60
	codePrefixBonus    = 150
	airportFlightBonus = 70
	hotelStayBonus     = 50
	homeCountryBonus   = 30
	capitalBonus       = 40
	fuzzyCeiling       = 30
	localeBonus        = 25
	maxWeightBonus     = 50
	weightDivisor      = 500
)

var italianFavourites = []string{"roma", "milano", "venezia"}

// fold lower-cases s and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(strings.TrimSpace(result))
}

// Params are the ranking inputs taken from the request.
type Params struct {
	Query string
	Lang  string
	Home  string
	Mode  string
}

// Score computes the relevance of s for p. Matching ignores case and accents.
func Score(s domain.Suggestion, p Params) float64 {
	q := fold(p.Query)
	name := fold(s.Name)
	code := fold(s.Code)
	home := fold(p.Home)

	var score float64
	switch {
	case strings.HasPrefix(name, q):
		score += namePrefixBonus
	case strings.Contains(name, q):
		score += nameContainsBonus
	}
	if q != "" && strings.HasPrefix(code, q) {
		score += codePrefixBonus
	}
	if s.Type == "airport" && p.Mode == "flight" {
		score += airportFlightBonus
	}
	if s.Type == "hotel" && (p.Mode == "hotel" || p.Mode == "bnb") {
		score += hotelStayBonus
	}
	if home != "" && strings.Contains(fold(s.Country), home) {
		score += homeCountryBonus
	}
	if s.IsCapital {
		score += capitalBonus
	}
	if name != "" && q != "" {
		score += float64(max(0, fuzzyCeiling-levenshtein.ComputeDistance(name, q)))
	}
	if p.Lang == "it" && slices.Contains(italianFavourites, name) {
		score += localeBonus
	}
	score += min(maxWeightBonus, s.Weight/weightDivisor)

	return score
}

// Rank scores every suggestion and stably sorts them best first.
func Rank(list []domain.Suggestion, p Params) []domain.Suggestion {
	ranked := make([]domain.Suggestion, len(list))
	for i, s := range list {
		s.Score = Score(s, p)
		ranked[i] = s
	}
	slices.SortStableFunc(ranked, func(a, b domain.Suggestion) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// Dedupe keeps the first suggestion per case-insensitive name and country.
func Dedupe(list []domain.Suggestion) []domain.Suggestion {
	seen := make(map[string]struct{}, len(list))
	out := make([]domain.Suggestion, 0, len(list))
	for _, s := range list {
		k := strings.ToLower(s.Name + "\x00" + s.Country)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
