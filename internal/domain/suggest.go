package domain

// Suggestion is a place returned by GET /api/suggest.
type Suggestion struct {
	Name    string  `json:"name"`
	Code    string  `json:"code"`
	Type    string  `json:"type"`
	Country string  `json:"country"`
	Weight  float64 `json:"weight,omitempty"`
	Score   float64 `json:"score,omitempty"`

	IsCapital bool `json:"-"`
}

// SuggestResponse is the GET /api/suggest body. Cached is only set on
// answers produced by a lookup; Fallback marks the canned city list served
// after an upstream failure.
type SuggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
	Cached      *bool        `json:"cached,omitempty"`
	Fallback    bool         `json:"fallback,omitempty"`
}
