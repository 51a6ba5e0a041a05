// Package affiliate resolves affiliate link URLs by key.
package affiliate

import (
	"os"
	"strconv"
	"strings"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
)

// Unresolved is returned for keys without a usable URL.
const Unresolved = "#"

const (
	envPrefix       = "AFF_ID_"
	publicEnvPrefix = "NEXT_PUBLIC_AFF_ID_"
	placeholder     = "PLACEHOLDER"
	maxVariants     = 6
)

// Keys lists the affiliate keys the search providers ask for.
var Keys = []string{
	"HOTEL", "BNB", "FLIGHT", "FLIGHT2", "CAR", "TRANSFER",
	"FINANCE", "TRADING", "TICKETS", "TICKETS2",
	"CONNECTIVITY1", "CONNECTIVITY2", "INSURANCE", "SOFTWARE", "ENERGY",
}

// Resolver maps affiliate keys to URLs. It is built once from an environment
// snapshot and a configured map and is read-only afterwards.
type Resolver struct {
	env      map[string]string
	fromYAML map[string]string
	resolved map[string]string
}

// NewResolver builds a resolver from environ ("KEY=value" entries, as
// returned by os.Environ) and the configured map.
func NewResolver(environ []string, configured map[string]string) *Resolver {
	r := &Resolver{
		env:      make(map[string]string),
		fromYAML: make(map[string]string, len(configured)),
		resolved: make(map[string]string, len(Keys)),
	}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(name, envPrefix) || strings.HasPrefix(name, publicEnvPrefix) {
			r.env[name] = value
		}
	}
	for k, v := range configured {
		r.fromYAML[strings.ToUpper(k)] = v
	}
	for _, key := range Keys {
		r.resolved[key] = r.lookup(key)
	}
	return r
}

// FromEnvironment snapshots the process environment.
func FromEnvironment(configured map[string]string) *Resolver {
	return NewResolver(os.Environ(), configured)
}

// URL returns the affiliate URL for key, or Unresolved.
func (r *Resolver) URL(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if u, ok := r.resolved[key]; ok {
		return u
	}
	return r.lookup(key)
}

// lookup tries AFF_ID_<KEY>, then AFF_ID_<KEY>2 … 6, accepting the
// NEXT_PUBLIC_ prefixed name as an alias at each step, then the configured
// map. Values containing PLACEHOLDER are skipped.
func (r *Resolver) lookup(key string) string {
	for i := 1; i <= maxVariants; i++ {
		suffix := ""
		if i > 1 {
			suffix = strconv.Itoa(i)
		}
		for _, prefix := range []string{envPrefix, publicEnvPrefix} {
			if v, ok := usable(r.env[prefix+key+suffix]); ok {
				return v
			}
		}
	}
	if v, ok := usable(r.fromYAML[key]); ok {
		return v
	}
	return Unresolved
}

func usable(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.Contains(v, placeholder) {
		return "", false
	}
	return v, true
}

// Missing returns the known keys that resolve to Unresolved.
func (r *Resolver) Missing() []string {
	var missing []string
	for _, key := range Keys {
		if r.resolved[key] == Unresolved {
			missing = append(missing, key)
		}
	}
	return missing
}

// WarnMissing logs one warning listing every unresolved key.
func (r *Resolver) WarnMissing(log logger.Logger) {
	if missing := r.Missing(); len(missing) > 0 {
		log.Warn("Affiliate links missing, offers will link to #", logger.Strings("keys", missing))
	}
}
