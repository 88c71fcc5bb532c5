package assetcache

import (
	"fmt"
	"regexp"
)

// Rules decides which requests must bypass the asset cache entirely.
// Backend gateway calls carry per-identity data and must never be served
// from or written to a static cache. The check runs before any cache
// lookup, so a URL matching both a cached asset and a network-only pattern
// always goes to the network.
type Rules struct {
	networkOnly []*regexp.Regexp
}

// NewRules compiles the given URL patterns.
func NewRules(patterns []string) (*Rules, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("wrong network-only pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Rules{networkOnly: compiled}, nil
}

// NetworkOnly reports whether url must be fetched from the network
// unconditionally.
func (r *Rules) NetworkOnly(url string) bool {
	for _, re := range r.networkOnly {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}
