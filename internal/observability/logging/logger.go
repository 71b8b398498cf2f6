// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithTriple returns a logger carrying the (sessionId, channelId, targetLang)
// triple that identifies one segment state's lifecycle.
func WithTriple(sessionID, channelID, targetLang string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionID).
		Str("channelId", channelID).
		Str("targetLang", targetLang).
		Logger()
}

// WithSegment returns a logger carrying a triple plus the segment ID of the
// transcription event currently being processed.
func WithSegment(sessionID, channelID, targetLang string, segmentID int) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionID).
		Str("channelId", channelID).
		Str("targetLang", targetLang).
		Int("segmentId", segmentID).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}
