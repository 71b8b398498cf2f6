package gate

import (
	"regexp"
	"strings"
	"sync"
)

// SupportedSentenceLanguages lists the short language codes this gate
// segments with dedicated boundary rules; any other language falls back to
// punctuationBoundaryRe.
var SupportedSentenceLanguages = map[string]bool{
	"en": true, "fr": true, "de": true, "es": true, "it": true, "pt": true,
	"nl": true, "pl": true, "ro": true, "cs": true, "da": true, "sv": true,
	"fi": true, "el": true, "hu": true, "bg": true, "hr": true, "sk": true,
	"sl": true, "et": true, "lv": true, "lt": true,
}

// punctuationBoundaryRe matches a sentence-ending punctuation mark followed
// by whitespace; used both as the fallback for unsupported languages and as
// the rule behind the dedicated segmenters below.
var punctuationBoundaryRe = regexp.MustCompile(`[.!?;]\s`)

// abbreviationsByLang lists, per supported short language code, words whose
// trailing period is not a sentence boundary ("Dr. Smith" is one sentence).
// Lowercase, without the trailing period.
var abbreviationsByLang = map[string][]string{
	"en": {"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "vs", "etc", "inc", "ltd", "co", "approx"},
	"fr": {"m", "mme", "mlle", "dr", "prof", "etc", "cf", "av", "bd"},
	"de": {"dr", "prof", "hr", "fr", "str", "etc", "bzw", "ggf", "usw"},
	"es": {"sr", "sra", "srta", "dr", "dra", "prof", "etc", "ud", "uds"},
	"it": {"sig", "sigra", "dott", "prof", "etc", "ecc"},
	"pt": {"sr", "sra", "dr", "dra", "prof", "etc"},
	"nl": {"dhr", "mevr", "dr", "prof", "etc", "bv"},
	"pl": {"p", "pan", "pani", "dr", "prof", "itd", "itp"},
	"ro": {"dl", "dna", "dr", "prof", "etc"},
	"cs": {"p", "pan", "dr", "prof", "atd"},
	"da": {"hr", "fr", "dr", "prof", "osv"},
	"sv": {"hr", "fr", "dr", "prof", "osv"},
	"fi": {"hra", "rva", "tri", "prof", "esim"},
	"el": {"κ", "κα", "δρ"},
	"hu": {"dr", "prof", "stb"},
	"bg": {"г-н", "г-жа", "д-р"},
	"hr": {"g", "dr", "prof", "itd"},
	"sk": {"p", "dr", "prof", "atď"},
	"sl": {"g", "ga", "dr", "prof", "itd"},
	"et": {"hr", "pr", "dr", "prof", "jne"},
	"lv": {"dr", "prof", "utt"},
	"lt": {"p", "dr", "prof"},
}

// segmenter splits text into sentence-like spans for one language, treating
// a period immediately after a known abbreviation as part of the
// abbreviation rather than a sentence boundary.
type segmenter struct {
	boundary *regexp.Regexp
	abbrev   map[string]bool
}

func newSegmenter(lang string) *segmenter {
	abbrev := make(map[string]bool, len(abbreviationsByLang[lang]))
	for _, a := range abbreviationsByLang[lang] {
		abbrev[a] = true
	}
	return &segmenter{boundary: punctuationBoundaryRe, abbrev: abbrev}
}

// segment returns the text split on sentence boundaries, including the
// trailing incomplete sentence as the final element.
func (s *segmenter) segment(text string) []string {
	locs := s.boundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	segments := make([]string, 0, len(locs)+1)
	last := 0
	for _, loc := range locs {
		if s.precededByAbbreviation(text, loc[0]) {
			continue
		}
		segments = append(segments, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, text[last:])
	}
	if len(segments) == 0 {
		return []string{text}
	}
	return segments
}

// precededByAbbreviation reports whether the word immediately before the
// punctuation mark at byte offset punctIdx is a known abbreviation, so its
// period should not be treated as ending a sentence. Only periods, never
// "!", "?", or ";", can follow an abbreviation.
func (s *segmenter) precededByAbbreviation(text string, punctIdx int) bool {
	if len(s.abbrev) == 0 || text[punctIdx] != '.' {
		return false
	}
	start := punctIdx
	for start > 0 && !isSpaceByte(text[start-1]) {
		start--
	}
	word := strings.ToLower(text[start:punctIdx])
	return s.abbrev[word]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

var segmenterCache sync.Map // short lang code -> *segmenter

// getSegmenter returns a cached segmenter for lang, or nil if lang is empty
// or not in SupportedSentenceLanguages (CountCompleteSentences then falls
// back to the bare punctuation regex).
func getSegmenter(lang string) *segmenter {
	if lang == "" {
		return nil
	}
	short := lang
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		short = lang[:i]
	}
	if !SupportedSentenceLanguages[short] {
		return nil
	}

	if v, ok := segmenterCache.Load(short); ok {
		return v.(*segmenter)
	}
	s := newSegmenter(short)
	actual, _ := segmenterCache.LoadOrStore(short, s)
	return actual.(*segmenter)
}

// CountCompleteSentences counts complete sentences in text. The final
// segment is always treated as the current incomplete sentence, so the
// complete count is total segments minus one.
func CountCompleteSentences(text, lang string) int {
	if s := getSegmenter(lang); s != nil {
		n := len(s.segment(text)) - 1
		if n < 0 {
			return 0
		}
		return n
	}
	return len(punctuationBoundaryRe.FindAllString(text, -1))
}

// HasNewSentence reports whether a new complete sentence has appeared in
// text since prevCount was recorded, along with the current count.
func HasNewSentence(text, lang string, prevCount int) (bool, int) {
	current := CountCompleteSentences(text, lang)
	return current > prevCount, current
}
