package model

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple domain", "example.com", "example.com"},
		{"Subdomain", "www.example.com", "www.example.com"},
		{"Uppercase", "EXAMPLE.COM", "example.com"},
		{"Trailing dot", "www.example.com.", "www.example.com"},
		{"Multiple trailing dots", "example.com...", "example.com"},
		{"Surrounding spaces", "  api.example.com  ", "api.example.com"},
		{"Wildcard", "*.example.com", "*.example.com"},
		{"Wildcard uppercase with dot", "*.EXAMPLE.COM.", "*.example.com"},
		{"Nested wildcard", "*.*.example.com", "*.*.example.com"},
		{"Underscore label", "_dmarc.example.com", "_dmarc.example.com"},
		{"Punycode", "XN--BCHER-KVA.example.com", "xn--bcher-kva.example.com"},
		{"Unicode", "bücher.example.com", "xn--bcher-kva.example.com"},
		{"Localhost", "localhost", "localhost"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			actual, err := NormalizeName(tc.input)
			if err != nil {
				t.Fatalf("NormalizeName(%q) returned error: %v", tc.input, err)
			}
			if actual != tc.expected {
				t.Errorf("NormalizeName(%q) = %q; want %q", tc.input, actual, tc.expected)
			}
		})
	}
}

func TestNormalizeNameRejects(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"",
		"   ",
		"...",
		"com",
		"example test.com",
		"-example.com",
		"example-.com",
		"exa$mple.com",
		"*.com",
		"a..example.com",
		strings.Repeat("a", 64) + ".com",
		strings.Repeat("a.", 127) + "com",
	}
	for _, input := range inputs {
		_, err := NormalizeName(input)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("NormalizeName(%q) error = %v; want *ValidationError", input, err)
		}
	}
}

func TestInScope(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, target string
		want         bool
	}{
		{"example.com", "example.com", true},
		{"www.example.com", "example.com", true},
		{"deep.sub.example.com", "example.com", true},
		{"*.example.com", "example.com", true},
		{"*.api.example.com", "example.com", true},
		{"*.*.example.com", "example.com", true},
		{"anotherexample.com", "example.com", false},
		{"example.com.evil.net", "example.com", false},
		{"*.com", "example.com", false},
		{"example.org", "example.com", false},
		{"*.example.com", "sub.example.com", true},
		{"*.example.com", "a.b.example.com", true},
		{"*.sub.example.com", "sub.example.com", true},
		{"example.com", "sub.example.com", false},
		{"*.other.example.com", "sub.example.com", false},
		{"*.co.uk", "example.co.uk", false},
		{"*.notexample.com", "sub.example.com", false},
	}
	for _, tt := range tests {
		if got := InScope(tt.name, tt.target); got != tt.want {
			t.Errorf("InScope(%q, %q) = %v; want %v", tt.name, tt.target, got, tt.want)
		}
	}
}

func TestWildcardHelpers(t *testing.T) {
	if !IsWildcard("*.example.com") || IsWildcard("example.com") {
		t.Fatal("IsWildcard misclassified input")
	}
	if got := WildcardBase("*.example.com"); got != "example.com" {
		t.Fatalf("WildcardBase = %q; want example.com", got)
	}
	if got := WildcardBase("example.com"); got != "example.com" {
		t.Fatalf("WildcardBase on concrete name = %q", got)
	}
	if got := WildcardBase("*.*.example.com"); got != "example.com" {
		t.Fatalf("WildcardBase on nested wildcard = %q; want example.com", got)
	}
}

func BenchmarkNormalizeName(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = NormalizeName("Www.Example.COM.")
	}
}
