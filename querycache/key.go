package querycache

import "strings"

// Key identifies a cached resource query as an ordered tuple of segments,
// e.g. ("articles"), ("articles", "category", "sports") or
// ("comments", "article", "42"). Invalidation matches by tuple prefix, so
// invalidating ("articles") also hits every per-category variant.
type Key struct {
	parts []string
}

// NewKey constructs a key from the given segments.
func NewKey(parts ...string) Key {
	return Key{parts: parts}
}

// IsZero reports whether the key has no segments.
func (k Key) IsZero() bool {
	return len(k.parts) == 0
}

// Len returns the number of segments.
func (k Key) Len() int {
	return len(k.parts)
}

// HasPrefix reports whether prefix is a leading sub-tuple of k.
// Every key has the zero key as a prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.parts) > len(k.parts) {
		return false
	}
	for i, p := range prefix.parts {
		if k.parts[i] != p {
			return false
		}
	}
	return true
}

// String returns the canonical map-index form of the key.
func (k Key) String() string {
	return strings.Join(k.parts, "/")
}
