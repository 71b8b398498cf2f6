package gate

import "strings"

// CheckStability reports whether newTranslation preserves enough of the
// word-level prefix currently displayed (lastPublished) to be safe to
// publish, along with the stability ratio that decision was based on.
func CheckStability(lastPublished, newTranslation string, threshold float64) (bool, float64) {
	if lastPublished == "" {
		return true, 1.0 // first display always passes
	}

	lastWords := strings.Fields(lastPublished)
	newWords := strings.Fields(newTranslation)

	if len(lastWords) <= 2 {
		return true, 1.0 // short text always updatable
	}

	common := 0
	limit := len(lastWords)
	if len(newWords) < limit {
		limit = len(newWords)
	}
	for i := 0; i < limit; i++ {
		if lastWords[i] != newWords[i] {
			break
		}
		common++
	}

	stability := float64(common) / float64(len(lastWords))
	return stability >= threshold, stability
}
