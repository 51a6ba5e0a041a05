// Package tracker decides where a tracked affiliate click may redirect.
package tracker

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Kaglioster-hub/vrabo/infrastructure/signer"
)

// Policy outcomes. The handler maps ErrInvalidSignature and ErrLoop to 400
// and every other error to a redirect home.
var (
	ErrNoTarget         = errors.New("no target url")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnsafeScheme     = errors.New("unsafe url scheme")
	ErrLoop             = errors.New("loop detected")
	ErrInvalidHost      = errors.New("invalid host")
	ErrDenied           = errors.New("host denied")
	ErrNotAllowed       = errors.New("host not allowed")
)

// HomePath is where rejected clicks are sent.
const HomePath = "/"

const (
	trackPath      = "/api/track"
	userHashLength = 16
)

var unsafeSchemes = []string{"javascript:", "data:", "vbscript:"}

// Policy validates click targets against the signature and host lists.
type Policy struct {
	signer *signer.Signer
	allow  []string
	deny   []string
}

// NewPolicy creates a Policy. Host lists are matched case-insensitively;
// blank entries are ignored.
func NewPolicy(s *signer.Signer, allow, deny []string) *Policy {
	return &Policy{
		signer: s,
		allow:  normalizeHosts(allow),
		deny:   normalizeHosts(deny),
	}
}

// Request holds the click parameters.
type Request struct {
	URL       string
	B64       string
	Signature string
}

// Resolve runs the decode, signature, normalize, loop and host checks and
// returns the redirect destination.
func (p *Policy) Resolve(req Request) (string, error) {
	raw := Decode(req.URL, req.B64)
	if raw == "" {
		return "", ErrNoTarget
	}
	if !p.signer.Verify(raw, req.Signature) {
		return "", ErrInvalidSignature
	}

	target, ok := SafeURL(raw)
	if !ok {
		return "", ErrUnsafeScheme
	}
	if strings.HasPrefix(target, trackPath) {
		return "", ErrLoop
	}
	if isInternal(target) {
		return target, nil
	}

	host := hostname(target)
	if host == "" {
		return "", ErrInvalidHost
	}
	if matchesAny(host, p.deny) {
		return "", ErrDenied
	}
	if len(p.allow) > 0 && !matchesAny(host, p.allow) {
		return "", ErrNotAllowed
	}
	return target, nil
}

// Decode returns the trimmed url parameter, or else b64 decoded with any of
// the standard or URL-safe alphabets, padded or not. Undecodable or non
// UTF-8 input yields "".
func Decode(rawURL, b64 string) string {
	if s := strings.TrimSpace(rawURL); s != "" {
		return s
	}
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return ""
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		decoded, err := enc.DecodeString(b64)
		if err == nil && utf8.Valid(decoded) {
			return strings.TrimSpace(string(decoded))
		}
	}
	return ""
}

// SafeURL normalizes raw. Site paths pass through, script-capable schemes
// are rejected and bare hosts get an https:// prefix. A protocol-relative
// "//host" is treated as a bare host.
func SafeURL(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if isInternal(s) {
		return s, true
	}

	lower := strings.ToLower(s)
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s, true
	}
	return "https://" + strings.TrimLeft(s, "/\\"), true
}

// isInternal reports whether s is a path on this site.
func isInternal(s string) bool {
	return strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") && !strings.HasPrefix(s, "/\\")
}

func hostname(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// MatchesHost reports whether host equals domain or is a subdomain of it.
func MatchesHost(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if MatchesHost(host, d) {
			return true
		}
	}
	return false
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// UserHash is the first 16 hex characters of sha256(ip + userAgent).
func UserHash(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + userAgent))
	return hex.EncodeToString(sum[:])[:userHashLength]
}
