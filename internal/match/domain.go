// Package match implements the domain and IP matching utilities shared by
// the built-in plugins (spec §4.E): normalize, exact/suffix/regex
// matching for domains, and CIDR/range/private-IP checks for addresses.
package match

import (
	"regexp"
	"strings"
)

// NormalizeDomain lowercases a domain and strips a trailing dot.
func NormalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSuffix(d, "."))
}

// Exact reports whether a and b are the same domain after normalization.
func Exact(a, b string) bool {
	return NormalizeDomain(a) == NormalizeDomain(b)
}

// Suffix implements the `*.x` / bare `x` pattern semantics of spec §4.E:
// `*.x` matches only proper subdomains of x; bare `x` matches only x
// itself unless includeSubdomains is set, in which case it behaves like
// `*.x` plus the exact match.
func Suffix(query, pattern string, includeSubdomains bool) bool {
	query = NormalizeDomain(query)
	pattern = NormalizeDomain(pattern)

	if strings.HasPrefix(pattern, "*.") {
		base := pattern[2:]
		return strings.HasSuffix(query, "."+base)
	}
	if query == pattern {
		return true
	}
	if includeSubdomains {
		return strings.HasSuffix(query, "."+pattern)
	}
	return false
}

// Substring implements the MosDNS `~` convention: pattern is a substring
// match against the normalized query domain.
func Substring(query, pattern string) bool {
	return strings.Contains(NormalizeDomain(query), pattern)
}

// Regex compiles and matches pattern against query. A compile or runtime
// error is treated as a non-match, per spec §4.E.
func Regex(query, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(NormalizeDomain(query))
}
