package helpers

import (
	"strings"
	"unicode/utf8"
)

// TypoDetector suggests a valid name for a name that is one edit away from
// it: one character missing, one extra, or one replaced. Comparison ignores
// case. Names of three characters or fewer are never suggested since almost
// anything is one edit away from them.
type TypoDetector struct {
	exact        map[string]string
	oneCharTypos map[string]string
}

func MakeTypoDetector(valid []string) TypoDetector {
	detector := TypoDetector{
		exact:        make(map[string]string),
		oneCharTypos: make(map[string]string),
	}

	for _, correct := range valid {
		if len(correct) <= 3 {
			continue
		}
		lower := strings.ToLower(correct)
		if _, ok := detector.exact[lower]; !ok {
			detector.exact[lower] = correct
		}

		// Add all combinations of each valid word with one character missing
		for _, variant := range withOneCharRemoved(lower) {
			if _, ok := detector.oneCharTypos[variant]; !ok {
				detector.oneCharTypos[variant] = correct
			}
		}
	}

	return detector
}

func (detector TypoDetector) MaybeCorrectTypo(typo string) (string, bool) {
	lower := strings.ToLower(typo)

	// A difference in case only
	if corrected, ok := detector.exact[lower]; ok {
		return corrected, corrected != typo
	}

	// Check for a single deleted character
	if corrected, ok := detector.oneCharTypos[lower]; ok {
		return corrected, true
	}

	for _, variant := range withOneCharRemoved(lower) {
		// Check for a single extra character
		if corrected, ok := detector.exact[variant]; ok {
			return corrected, true
		}

		// Check for a single replaced character
		if corrected, ok := detector.oneCharTypos[variant]; ok {
			return corrected, true
		}
	}

	return "", false
}

func withOneCharRemoved(text string) []string {
	variants := make([]string, 0, len(text))
	for i, ch := range text {
		variants = append(variants, text[:i]+text[i+utf8.RuneLen(ch):])
	}
	return variants
}
