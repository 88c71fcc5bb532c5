package nexus

import (
	"errors"
	"testing"
)

func TestParsePrincipalSuccess(t *testing.T) {
	testCases := []struct {
		text     string
		expected Principal
	}{
		{"ryjl3-tyaaa-aaaaa-aaaba-cai", "ryjl3-tyaaa-aaaaa-aaaba-cai"},
		{"RYJL3-TYAAA-AAAAA-AAABA-CAI", "ryjl3-tyaaa-aaaaa-aaaba-cai"},
		{"  w7x7r-cok77-xa  ", "w7x7r-cok77-xa"},
		{"aaaaa-aa", "aaaaa-aa"},
		{"22222-33333-4", "22222-33333-4"},
	}

	for _, tc := range testCases {
		p, err := ParsePrincipal(tc.text)
		if err != nil {
			t.Fatalf("unexpected error for %q: %s", tc.text, err)
		}
		if p != tc.expected {
			t.Fatalf("unexpected principal %q for %q; expecting %q", p, tc.text, tc.expected)
		}
	}
}

func TestParsePrincipalFailure(t *testing.T) {
	testCases := []string{
		"",
		"   ",
		"aaaaa",
		"nodashes",
		"aaaa-aaaaa-aa",
		"aaaaa-aaaaaa",
		"aaaa1-aaaaa",
		"aaaa!-aaaaa",
		"aaaaa--aaaaa",
		"aaaaa-aaaaa-",
		"-aaaaa-aaaaa",
		"aaaaa-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa",
	}

	for _, text := range testCases {
		if _, err := ParsePrincipal(text); !errors.Is(err, ErrInvalidPrincipal) {
			t.Fatalf("expecting ErrInvalidPrincipal for %q; got %v", text, err)
		}
	}
}
