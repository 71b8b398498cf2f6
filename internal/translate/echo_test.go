package translate

import (
	"context"
	"testing"
)

func TestEchoProvider_ReturnsInputUnchanged(t *testing.T) {
	p := NewEchoProvider()
	got, err := p.Translate(context.Background(), "bonjour", "fr", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bonjour" {
		t.Errorf("expected echo to return input unchanged, got %q", got)
	}
}
