package search

import (
	"slices"

	"github.com/Kaglioster-hub/vrabo/internal/config"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
)

// Score ranks o for category under the user's profile:
//
//	rate * 100 * adjustment * (popularity*weight + base)
//
// where adjustment starts at 1, gains the style and (trading only) risk
// bonuses, and is scaled by the clamped budget/price ratio, the dates boost
// and the rating factor.
func Score(o domain.Offer, category domain.Category, profile *domain.Profile, hasDates bool, sc config.ScoringConfig) float64 {
	style, risk, budget := sc.DefaultStyle, sc.DefaultRisk, sc.DefaultBudget
	if profile != nil {
		if profile.Style != "" {
			style = profile.Style
		}
		if profile.Risk != "" {
			risk = profile.Risk
		}
		if b := profile.BudgetValue(); b != 0 {
			budget = b
		}
	}

	adjustment := 1.0
	if slices.Contains(o.Tags, style) {
		adjustment += sc.StyleBonus
	}
	if category == domain.CategoryTrading && slices.Contains(o.Tags, risk) {
		adjustment += sc.RiskBonus
	}
	if o.PriceValue != nil && *o.PriceValue > 0 {
		adjustment *= clamp(budget / *o.PriceValue, sc.BudgetRatioMin, sc.BudgetRatioMax)
	}
	if hasDates {
		adjustment *= sc.DatesBoost
	}
	if o.Rating != nil && *o.Rating > 0 {
		adjustment *= sc.RatingBase + *o.Rating/5*sc.RatingWeight
	}

	popularity := o.Popularity
	if popularity == 0 {
		popularity = 1
	}
	return category.CommissionRate() * 100 * adjustment * (popularity*sc.PopularityWeight + sc.PopularityBase)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

// Dedupe drops offers whose (title, url) pair was already seen, keeping the
// first occurrence and the original order.
func Dedupe(offers []domain.Offer) []domain.Offer {
	type key struct{ title, url string }

	seen := make(map[key]struct{}, len(offers))
	out := offers[:0]
	for _, o := range offers {
		k := key{o.Title, o.URL}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, o)
	}
	return out
}
