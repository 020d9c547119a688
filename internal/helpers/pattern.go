package helpers

import "strings"

// WildcardPattern is a pattern with at most one "*", as used by the keys of
// package.json "exports"/"imports" maps and tsconfig "paths".
type WildcardPattern struct {
	Prefix      string
	Suffix      string
	HasWildcard bool
}

// ParseWildcardPattern returns false if the text contains more than one "*".
func ParseWildcardPattern(text string) (WildcardPattern, bool) {
	star := strings.IndexByte(text, '*')
	if star < 0 {
		return WildcardPattern{Prefix: text}, true
	}
	if strings.IndexByte(text[star+1:], '*') >= 0 {
		return WildcardPattern{}, false
	}
	return WildcardPattern{Prefix: text[:star], Suffix: text[star+1:], HasWildcard: true}, true
}

// Match returns the text captured by the wildcard. A pattern without a
// wildcard only matches identical text and captures nothing.
func (p WildcardPattern) Match(text string) (capture string, ok bool) {
	if !p.HasWildcard {
		return "", text == p.Prefix
	}
	if len(text) >= len(p.Prefix)+len(p.Suffix) &&
		strings.HasPrefix(text, p.Prefix) && strings.HasSuffix(text, p.Suffix) {
		return text[len(p.Prefix) : len(text)-len(p.Suffix)], true
	}
	return "", false
}

func (p WildcardPattern) String() string {
	if p.HasWildcard {
		return p.Prefix + "*" + p.Suffix
	}
	return p.Prefix
}

// MoreSpecificThan orders wildcard patterns by the length of the text before
// the "*", then by the length of the text after it. Ties are not more
// specific, which leaves the first-declared pattern in place.
func (p WildcardPattern) MoreSpecificThan(other WildcardPattern) bool {
	if len(p.Prefix) != len(other.Prefix) {
		return len(p.Prefix) > len(other.Prefix)
	}
	return len(p.Suffix) > len(other.Suffix)
}
