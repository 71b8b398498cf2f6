package gate

import "testing"

func TestShouldSkip_FirstPartialAlwaysPasses(t *testing.T) {
	if ShouldSkip("", "hello", 85, 10) {
		t.Error("expected first partial to never be skipped")
	}
}

func TestShouldSkip_SimilarAndFewNewChars(t *testing.T) {
	last := "The quick brown fox"
	next := "The quick brown fox j"
	if !ShouldSkip(last, next, 85, 10) {
		t.Error("expected skip: highly similar with few new chars")
	}
}

func TestShouldSkip_SimilarButEnoughNewChars(t *testing.T) {
	last := "The quick brown fox"
	next := "The quick brown fox jumps over the lazy dog"
	if ShouldSkip(last, next, 85, 10) {
		t.Error("expected no skip: enough new characters added")
	}
}

func TestShouldSkip_DissimilarText(t *testing.T) {
	last := "The quick brown fox"
	next := "Completely different sentence here"
	if ShouldSkip(last, next, 85, 10) {
		t.Error("expected no skip: text changed substantially")
	}
}

func TestRatio_IdenticalStrings(t *testing.T) {
	if got := ratio("hello", "hello"); got != 100 {
		t.Errorf("expected ratio 100 for identical strings, got %v", got)
	}
}

func TestRatio_EmptyStrings(t *testing.T) {
	if got := ratio("", ""); got != 100 {
		t.Errorf("expected ratio 100 for two empty strings, got %v", got)
	}
}
