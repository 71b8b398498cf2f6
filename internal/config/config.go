// Package config loads relay configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Config holds all relay configuration.
type Config struct {
	TranslatorName string
	Broker         BrokerConfig
	Gates          GateConfig
	Translate      TranslateConfig
	Observability  ObservabilityConfig
}

// BrokerConfig holds MQTT broker connection settings.
type BrokerConfig struct {
	Host string
	Port int
}

// GateConfig holds the anti-flicker pipeline's tunables.
type GateConfig struct {
	ChangeThreshold     float64
	MinNewChars         int
	PartialDebounce     time.Duration
	StabilityThreshold  float64
	MaxHoldSeconds      time.Duration
	MaxConsecutiveHolds int
}

// TranslateConfig holds translation-provider settings.
type TranslateConfig struct {
	Provider  string // "echo" or "openaicompat"
	Endpoint  string
	Model     string
	MaxTokens int
}

// ObservabilityConfig holds logging/metrics settings.
type ObservabilityConfig struct {
	MetricsPort    string
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
}

// EULanguages lists the 24 official European languages this relay can
// target, published in the online status payload.
var EULanguages = []string{
	"en", "fr", "de", "es", "it", "pt", "nl", "pl",
	"ro", "cs", "da", "sv", "fi", "el", "hu", "bg",
	"hr", "sk", "sl", "et", "lv", "lt", "mt", "ga",
}

// Load reads configuration from environment variables. TRANSLATOR_NAME is
// the only required variable: it names the status topic, the last-will
// payload, and the translator-match filter applied to inbound events.
func Load() (*Config, error) {
	name := os.Getenv("TRANSLATOR_NAME")
	if name == "" {
		return nil, fmt.Errorf("TRANSLATOR_NAME environment variable is required")
	}

	return &Config{
		TranslatorName: name,
		Broker: BrokerConfig{
			Host: envOrDefault("BROKER_HOST", "localhost"),
			Port: envOrDefaultInt("BROKER_PORT", 1883),
		},
		Gates: GateConfig{
			ChangeThreshold:     envOrDefaultFloat("CHANGE_THRESHOLD", 85),
			MinNewChars:         envOrDefaultInt("MIN_NEW_CHARS", 10),
			PartialDebounce:     time.Duration(envOrDefaultInt("PARTIAL_DEBOUNCE_MS", 300)) * time.Millisecond,
			StabilityThreshold:  envOrDefaultFloat("STABILITY_THRESHOLD", 0.6),
			MaxHoldSeconds:      envOrDefaultSecondsFloat("MAX_HOLD_SECONDS", 2*time.Second),
			MaxConsecutiveHolds: envOrDefaultInt("MAX_CONSECUTIVE_HOLDS", 2),
		},
		Translate: TranslateConfig{
			Provider:  envOrDefault("TRANSLATION_PROVIDER", "echo"),
			Endpoint:  envOrDefault("TRANSLATE_ENDPOINT", ""),
			Model:     envOrDefault("TRANSLATE_MODEL", "translategemma-4b-it"),
			MaxTokens: envOrDefaultInt("TRANSLATE_MAX_TOKENS", 500),
		},
		Observability: ObservabilityConfig{
			MetricsPort:    envOrDefault("METRICS_PORT", "9090"),
			MetricsEnabled: envOrDefaultBool("METRICS_ENABLED", true),
			LogLevel:       envOrDefault("LOG_LEVEL", "info"),
			LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		},
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envOrDefaultSecondsFloat reads a float number of seconds (matching the
// MAX_HOLD_SECONDS=2.0 style) rather than a Go duration string.
func envOrDefaultSecondsFloat(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	return def
}

// PrimarySubtag reduces a BCP-47 tag ("fr-FR") to its primary subtag ("fr"),
// using golang.org/x/text/language so regional and script variants ("zh-Hant",
// "pt-BR") collapse correctly rather than by naive hyphen splitting.
func PrimarySubtag(lang string) string {
	if lang == "" {
		return lang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		if i := strings.IndexByte(lang, '-'); i >= 0 {
			return lang[:i]
		}
		return lang
	}
	base, _ := tag.Base()
	return base.String()
}
