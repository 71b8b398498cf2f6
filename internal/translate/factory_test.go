package translate

import (
	"testing"

	"translate-relay/internal/config"
)

func TestNewFromConfig_Echo(t *testing.T) {
	p, err := NewFromConfig(config.TranslateConfig{Provider: "echo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*EchoProvider); !ok {
		t.Errorf("expected *EchoProvider, got %T", p)
	}
}

func TestNewFromConfig_DefaultsToEcho(t *testing.T) {
	p, err := NewFromConfig(config.TranslateConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*EchoProvider); !ok {
		t.Errorf("expected *EchoProvider for empty provider name, got %T", p)
	}
}

func TestNewFromConfig_OpenAICompatRequiresEndpoint(t *testing.T) {
	_, err := NewFromConfig(config.TranslateConfig{Provider: "openaicompat"})
	if err == nil {
		t.Fatal("expected an error when TRANSLATE_ENDPOINT is unset")
	}
}

func TestNewFromConfig_UnknownProvider(t *testing.T) {
	_, err := NewFromConfig(config.TranslateConfig{Provider: "bogus"})
	if err == nil {
		t.Fatal("expected an error for an unknown provider name")
	}
}
