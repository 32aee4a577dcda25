// Package model holds the record and query types shared by the collection pipeline.
package model

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

const (
	// MaxNameLength is the longest accepted FQDN in its ASCII form.
	MaxNameLength = 253
	// MaxLabelLength is the longest accepted single label.
	MaxLabelLength = 63

	wildcardPrefix = "*."
)

// NormalizeName trims, lowercases and strips trailing dots from raw, converts
// internationalized labels to their ASCII form and validates the result.
// Wildcard patterns such as "*.example.com" are kept as patterns.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimRight(strings.TrimSpace(raw), ".")
	if name == "" {
		return "", &ValidationError{Field: "domain", Value: raw, Reason: "empty name"}
	}

	if strings.HasPrefix(name, wildcardPrefix) {
		base, err := NormalizeName(name[len(wildcardPrefix):])
		if err != nil {
			return "", &ValidationError{Field: "domain", Value: raw, Reason: "invalid wildcard base"}
		}
		return wildcardPrefix + base, nil
	}

	if !isASCII(name) {
		ascii, err := idna.Lookup.ToASCII(name)
		if err != nil {
			return "", &ValidationError{Field: "domain", Value: raw, Reason: "idna: " + err.Error()}
		}
		name = ascii
	}
	name = strings.ToLower(name)

	if reason := checkName(name); reason != "" {
		return "", &ValidationError{Field: "domain", Value: raw, Reason: reason}
	}
	return name, nil
}

// IsWildcard reports whether name is a wildcard pattern.
func IsWildcard(name string) bool {
	return strings.HasPrefix(name, wildcardPrefix)
}

// WildcardBase returns the name a wildcard pattern covers with every leading
// "*." removed, or name itself.
func WildcardBase(name string) string {
	for IsWildcard(name) {
		name = name[len(wildcardPrefix):]
	}
	return name
}

// InScope reports whether the normalized name is the target or one of its
// subdomains. A wildcard is in scope when the name it covers is, or when it
// covers the target itself (*.example.com for sub.example.com). Wildcards over
// a public suffix never match.
func InScope(name, target string) bool {
	if !IsWildcard(name) {
		return isSubdomainOrSelf(name, target)
	}
	base := WildcardBase(name)
	if isSubdomainOrSelf(base, target) {
		return true
	}
	if suffix, _ := publicsuffix.PublicSuffix(base); suffix == base {
		return false
	}
	return isSubdomainOrSelf(target, base)
}

func isSubdomainOrSelf(name, parent string) bool {
	return name == parent || strings.HasSuffix(name, "."+parent)
}

func checkName(name string) string {
	if len(name) > MaxNameLength {
		return "name longer than 253 characters"
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 && name != "localhost" {
		return "name needs at least two labels"
	}
	for _, label := range labels {
		if label == "" {
			return "empty label"
		}
		if len(label) > MaxLabelLength {
			return "label longer than 63 characters"
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return "label starts or ends with a hyphen"
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' && c != '_' {
				return fmt.Sprintf("label contains invalid character %q", c)
			}
		}
	}
	return ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
