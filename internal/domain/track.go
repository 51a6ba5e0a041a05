package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Column widths of the caller-supplied event labels in track_events.
const (
	MaxTabLen   = 32
	MaxTitleLen = 256
	MaxLangLen  = 8
)

// TrackEvent records one outbound redirect. IP and UserAgent only appear in
// the transient log line; persisted rows keep UserHash.
type TrackEvent struct {
	ID        uuid.UUID `json:"id"`
	Time      time.Time `json:"time"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"ua"`
	UserHash  string    `json:"userHash"`
	Referer   string    `json:"ref"`
	Target    string    `json:"target"`
	Tab       string    `json:"tab,omitempty"`
	Title     string    `json:"title,omitempty"`
	Lang      string    `json:"lang,omitempty"`
	IsBot     bool      `json:"isBot"`
}

// TruncateLabel cuts s to at most n characters.
func TruncateLabel(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
