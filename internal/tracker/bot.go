package tracker

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// DefaultBotPatterns are lower-case user agent fragments of known crawlers
// and link previewers.
var DefaultBotPatterns = []string{
	"googlebot", "bingbot", "slurp", "duckduckbot",
	"baiduspider", "yandexbot", "facebookexternalhit",
	"twitterbot", "rogerbot", "linkedinbot", "embedly",
	"quora link preview", "showyoubot", "outbrain",
	"pinterest", "applebot", "semrushbot", "ahrefsbot",
	"mj12bot", "dotbot", "petalbot", "bytespider",
	"curl/", "wget/", "python-requests", "headlesschrome",
}

// BotMatcher flags user agents containing any configured pattern.
type BotMatcher struct {
	matcher *ahocorasick.Matcher
}

// NewBotMatcher builds a matcher. With no patterns DefaultBotPatterns apply.
func NewBotMatcher(patterns []string) *BotMatcher {
	if len(patterns) == 0 {
		patterns = DefaultBotPatterns
	}
	lower := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lower = append(lower, p)
		}
	}
	return &BotMatcher{matcher: ahocorasick.NewStringMatcher(lower)}
}

// IsBot reports whether ua is empty or matches a pattern.
func (m *BotMatcher) IsBot(ua string) bool {
	ua = strings.ToLower(strings.TrimSpace(ua))
	if ua == "" {
		return true
	}
	return m.matcher.Contains([]byte(ua))
}
