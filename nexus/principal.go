package nexus

import (
	"fmt"
	"strings"
)

// Principal is the textual form of a caller identity issued by the
// decentralized-identity provider. It is treated as opaque beyond the
// well-formedness check in ParsePrincipal.
type Principal string

const principalAlphabet = "abcdefghijklmnopqrstuvwxyz234567"

func isPrincipalGroup(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(principalAlphabet, r) {
			return false
		}
	}
	return len(s) > 0
}

// ParsePrincipal validates principal text before any backend call is made.
// The accepted shape is dash-separated base32 groups of five characters with
// a shorter final group, e.g. "ryjl3-tyaaa-aaaaa-aaaba-cai".
func ParsePrincipal(text string) (Principal, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if len(s) == 0 {
		return "", fmt.Errorf("%w: empty principal text", ErrInvalidPrincipal)
	}
	if len(s) > 63 {
		return "", fmt.Errorf("%w: principal text too long", ErrInvalidPrincipal)
	}

	groups := strings.Split(s, "-")
	if len(groups) < 2 {
		return "", fmt.Errorf("%w: %q is not a valid principal", ErrInvalidPrincipal, text)
	}
	for i, g := range groups {
		last := i == len(groups)-1
		if !isPrincipalGroup(g) || (!last && len(g) != 5) || (last && len(g) > 5) {
			return "", fmt.Errorf("%w: %q is not a valid principal", ErrInvalidPrincipal, text)
		}
	}

	return Principal(s), nil
}

// String implements the stringer interface.
func (p Principal) String() string { return string(p) }
