// Package gate implements the anti-flicker pipeline's pure filters:
// ChangeGate, SentenceGate, and StabilityGate.
package gate

import "github.com/agnivade/levenshtein"

// ShouldSkip reports whether a partial should be skipped because the
// source text has barely changed since the last translated source. A
// partial is skipped only when it is BOTH very similar to lastSource AND
// has added fewer than minChars new characters; either condition alone is
// not enough to suppress a translation.
func ShouldSkip(lastSource, newSource string, threshold float64, minChars int) bool {
	if lastSource == "" {
		return false // first partial always passes
	}

	similarity := ratio(lastSource, newSource)
	charsAdded := len(newSource) - len(lastSource)

	return similarity > threshold && charsAdded < minChars
}

// ratio computes a 0-100 similarity score between a and b using normalized
// Levenshtein edit distance, the same scale RapidFuzz's ratio() uses.
func ratio(a, b string) float64 {
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(maxLen))
}
